package capture

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func init() {
	api.DisableConfigDir()
}

// PageCount reads the page count of a PDF held in memory.
func PageCount(data []byte) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("failed to read pdf: %v", r)
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	n, err = api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("failed to read pdf: %w", err)
	}
	return n, nil
}
