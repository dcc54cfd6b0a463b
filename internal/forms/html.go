package forms

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ParseHTML reads the inputs of the first form in an HTML document, in
// document order. Without a form element the whole document is scanned.
func ParseHTML(r io.Reader) (Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html form: %w", err)
	}

	root := doc.Find("form").First()
	if root.Length() == 0 {
		root = doc.Selection
	}

	var fields Snapshot
	root.Find("input, select, textarea").Each(func(_ int, s *goquery.Selection) {
		f := Field{
			Name: strings.TrimSpace(s.AttrOr("name", "")),
			ID:   strings.TrimSpace(s.AttrOr("id", "")),
		}

		switch goquery.NodeName(s) {
		case "select":
			f.Type = TypeSelect
			opt := s.Find("option[selected]").First()
			if opt.Length() == 0 {
				opt = s.Find("option").First()
			}
			f.Value = optionValue(opt)
		case "textarea":
			f.Type = TypeTextarea
			f.Value = s.Text()
		default:
			f.Type = FieldType(strings.ToLower(s.AttrOr("type", "text")))
			f.Value = s.AttrOr("value", "")
			_, f.Checked = s.Attr("checked")
			if f.Type == TypeCheckbox || f.Type == TypeRadio {
				if _, ok := s.Attr("value"); !ok {
					f.Value = "on"
				}
			}
		}
		fields = append(fields, f)
	})
	return fields, nil
}

func optionValue(opt *goquery.Selection) string {
	if opt.Length() == 0 {
		return ""
	}
	if v, ok := opt.Attr("value"); ok {
		return v
	}
	return strings.TrimSpace(opt.Text())
}
