package submission

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func init() {
	api.DisableConfigDir()
}

// ValidatePDF checks that data parses as a PDF document.
func ValidatePDF(data []byte) (err error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return fmt.Errorf("response is not a pdf")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to validate pdf: %v", r)
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.Validate(bytes.NewReader(data), conf); err != nil {
		return fmt.Errorf("failed to validate pdf: %w", err)
	}
	return nil
}
