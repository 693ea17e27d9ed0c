package pptx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

type presentationPart struct {
	SlideIDs []struct {
		RelID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
}

type relationshipsPart struct {
	Rels []struct {
		ID     string `xml:"Id,attr"`
		Type   string `xml:"Type,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

type slidePart struct {
	Shapes []struct {
		Placeholder *struct {
			Type string `xml:"type,attr"`
			Idx  string `xml:"idx,attr"`
		} `xml:"nvSpPr>nvPr>ph"`
		Paragraphs []struct {
			Runs []string `xml:"r>t"`
		} `xml:"txBody>p"`
	} `xml:"cSld>spTree>sp"`
}

// Parse reconstructs a document from container bytes. Slide order comes from
// the presentation part's sldIdLst resolved through its relationships, not
// from part naming, so packages produced by other writers still read
// correctly. Any structural problem maps to ErrInvalidContainer.
func Parse(data []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContainer, err)
	}

	parts := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		parts[f.Name] = f
	}

	var pres presentationPart
	if err := decodePart(parts, partPresentation, &pres); err != nil {
		return nil, err
	}
	var rels relationshipsPart
	if err := decodePart(parts, partPresRels, &rels); err != nil {
		return nil, err
	}

	slideTargets := make(map[string]string, len(rels.Rels))
	for _, rel := range rels.Rels {
		if rel.Type == relTypeSlide {
			slideTargets[rel.ID] = "ppt/" + strings.TrimPrefix(rel.Target, "/ppt/")
		}
	}

	doc := New()
	for _, sld := range pres.SlideIDs {
		target, ok := slideTargets[sld.RelID]
		if !ok {
			return nil, fmt.Errorf("%w: slide relationship %q missing", ErrInvalidContainer, sld.RelID)
		}
		var part slidePart
		if err := decodePart(parts, target, &part); err != nil {
			return nil, err
		}
		title, content := slideText(part)
		doc.slides = append(doc.slides, Slide{Title: title, Content: content, Layout: DefaultLayout})
	}
	return doc, nil
}

func decodePart(parts map[string]*zip.File, name string, dest any) error {
	f, ok := parts[name]
	if !ok {
		return fmt.Errorf("%w: missing part %s", ErrInvalidContainer, name)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: open part %s: %v", ErrInvalidContainer, name, err)
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("%w: read part %s: %v", ErrInvalidContainer, name, err)
	}
	if err := xml.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("%w: parse part %s: %v", ErrInvalidContainer, name, err)
	}
	return nil
}

// slideText extracts the title and body placeholder text of a slide.
// Paragraph boundaries in the body become newlines, the inverse of slideXML.
func slideText(part slidePart) (title, content string) {
	for _, sp := range part.Shapes {
		if sp.Placeholder == nil {
			continue
		}
		switch sp.Placeholder.Type {
		case "title", "ctrTitle":
			var runs []string
			for _, p := range sp.Paragraphs {
				runs = append(runs, strings.Join(p.Runs, ""))
			}
			title = strings.Join(runs, "\n")
		case "body", "":
			if sp.Placeholder.Type == "" && sp.Placeholder.Idx == "" {
				continue
			}
			lines := make([]string, 0, len(sp.Paragraphs))
			for _, p := range sp.Paragraphs {
				lines = append(lines, strings.Join(p.Runs, ""))
			}
			content = strings.Join(lines, "\n")
		}
	}
	return title, content
}
