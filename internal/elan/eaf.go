package elan

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	eafVersion     = "3.0"
	eafSchema      = "http://www.mpi.nl/tools/elan/EAFv3.0.xsd"
	xsiNamespace   = "http://www.w3.org/2001/XMLSchema-instance"
	linguisticType = "default-lt"
)

type eafDocument struct {
	XMLName   xml.Name `xml:"ANNOTATION_DOCUMENT"`
	Author    string   `xml:"AUTHOR,attr"`
	Date      string   `xml:"DATE,attr"`
	Format    string   `xml:"FORMAT,attr"`
	Version   string   `xml:"VERSION,attr"`
	XSI       string   `xml:"xmlns:xsi,attr"`
	SchemaLoc string   `xml:"xsi:noNamespaceSchemaLocation,attr"`

	Header          eafHeader           `xml:"HEADER"`
	TimeOrder       eafTimeOrder        `xml:"TIME_ORDER"`
	Tiers           []eafTier           `xml:"TIER"`
	LinguisticTypes []eafLinguisticType `xml:"LINGUISTIC_TYPE"`
	Constraints     []eafConstraint     `xml:"CONSTRAINT"`
}

type eafHeader struct {
	MediaFile  string               `xml:"MEDIA_FILE,attr"`
	TimeUnits  string               `xml:"TIME_UNITS,attr"`
	Media      []eafMediaDescriptor `xml:"MEDIA_DESCRIPTOR"`
	Properties []eafProperty        `xml:"PROPERTY"`
}

type eafMediaDescriptor struct {
	MediaURL         string `xml:"MEDIA_URL,attr"`
	MimeType         string `xml:"MIME_TYPE,attr"`
	RelativeMediaURL string `xml:"RELATIVE_MEDIA_URL,attr,omitempty"`
}

type eafProperty struct {
	Name  string `xml:"NAME,attr"`
	Value string `xml:",chardata"`
}

type eafTimeOrder struct {
	Slots []eafTimeSlot `xml:"TIME_SLOT"`
}

type eafTimeSlot struct {
	ID    string `xml:"TIME_SLOT_ID,attr"`
	Value int64  `xml:"TIME_VALUE,attr"`
}

type eafTier struct {
	LinguisticTypeRef string          `xml:"LINGUISTIC_TYPE_REF,attr"`
	ID                string          `xml:"TIER_ID,attr"`
	Annotations       []eafAnnotation `xml:"ANNOTATION"`
}

type eafAnnotation struct {
	Alignable eafAlignable `xml:"ALIGNABLE_ANNOTATION"`
}

type eafAlignable struct {
	ID    string `xml:"ANNOTATION_ID,attr"`
	Ref1  string `xml:"TIME_SLOT_REF1,attr"`
	Ref2  string `xml:"TIME_SLOT_REF2,attr"`
	Value string `xml:"ANNOTATION_VALUE"`
}

type eafLinguisticType struct {
	GraphicReferences string `xml:"GRAPHIC_REFERENCES,attr"`
	ID                string `xml:"LINGUISTIC_TYPE_ID,attr"`
	TimeAlignable     string `xml:"TIME_ALIGNABLE,attr"`
}

type eafConstraint struct {
	Description string `xml:"DESCRIPTION,attr"`
	Stereotype  string `xml:"STEREOTYPE,attr"`
}

var standardConstraints = []eafConstraint{
	{"Time subdivision of parent annotation's time interval, no time gaps allowed within this interval", "Time_Subdivision"},
	{"Symbolic subdivision of a parent annotation. Annotations refering to the same parent are ordered", "Symbolic_Subdivision"},
	{"1-1 association with a parent annotation", "Symbolic_Association"},
	{"Time alignable annotations within the parent annotation's time interval, gaps are allowed", "Included_In"},
}

// Encode writes the artifact as an EAF 3.0 document. When baseDir is set,
// the media link also gets a path relative to it, which is what ELAN uses
// when the .eaf and audio move together.
func (a *Artifact) Encode(w io.Writer, baseDir string) error {
	doc := eafDocument{
		Date:      a.CreatedAt.Format(time.RFC3339),
		Format:    eafVersion,
		Version:   eafVersion,
		XSI:       xsiNamespace,
		SchemaLoc: eafSchema,
		Header: eafHeader{
			TimeUnits: "milliseconds",
			Properties: []eafProperty{
				{Name: "lastUsedAnnotationId", Value: strconv.Itoa(a.count)},
			},
		},
		LinguisticTypes: []eafLinguisticType{
			{GraphicReferences: "false", ID: linguisticType, TimeAlignable: "true"},
		},
		Constraints: standardConstraints,
	}

	if a.Media != nil {
		md, err := mediaDescriptor(a.Media, baseDir)
		if err != nil {
			return err
		}
		doc.Header.Media = append(doc.Header.Media, md)
	}

	// two slots per annotation, numbered in insertion order
	slots := make([]eafTimeSlot, 0, 2*a.count)
	for _, t := range a.tiers {
		tier := eafTier{LinguisticTypeRef: linguisticType, ID: t.Name}
		for _, ann := range t.Annotations {
			ref1 := "ts" + strconv.Itoa(2*ann.seq+1)
			ref2 := "ts" + strconv.Itoa(2*ann.seq+2)
			slots = append(slots,
				eafTimeSlot{ID: ref1, Value: ann.StartMs},
				eafTimeSlot{ID: ref2, Value: ann.EndMs},
			)
			tier.Annotations = append(tier.Annotations, eafAnnotation{Alignable: eafAlignable{
				ID:    "a" + strconv.Itoa(ann.seq+1),
				Ref1:  ref1,
				Ref2:  ref2,
				Value: ann.Value,
			}})
		}
		doc.Tiers = append(doc.Tiers, tier)
	}
	sort.Slice(slots, func(i, j int) bool {
		return slotNumber(slots[i].ID) < slotNumber(slots[j].ID)
	})
	doc.TimeOrder.Slots = slots

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("write eaf header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode eaf %s: %w", a.RecordingID, err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("write eaf: %w", err)
	}
	return nil
}

func mediaDescriptor(m *Media, baseDir string) (eafMediaDescriptor, error) {
	abs, err := filepath.Abs(m.Path)
	if err != nil {
		return eafMediaDescriptor{}, fmt.Errorf("resolve media path %s: %w", m.Path, err)
	}
	md := eafMediaDescriptor{
		MediaURL: (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(),
		MimeType: m.MimeType,
	}

	if baseDir != "" {
		base, err := filepath.Abs(baseDir)
		if err != nil {
			return eafMediaDescriptor{}, fmt.Errorf("resolve base dir %s: %w", baseDir, err)
		}
		if rel, err := filepath.Rel(base, abs); err == nil {
			rel = filepath.ToSlash(rel)
			if !strings.HasPrefix(rel, "../") {
				rel = "./" + rel
			}
			md.RelativeMediaURL = rel
		}
	}
	return md, nil
}

func slotNumber(id string) int {
	n, _ := strconv.Atoi(strings.TrimPrefix(id, "ts"))
	return n
}
