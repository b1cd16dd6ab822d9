package task

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Limits bounds user-supplied task text.
type Limits struct {
	TitleMaxChars       int
	DescriptionMaxChars int
}

// ValidateTitle trims and checks a title, returning the cleaned value.
func ValidateTitle(title string, limits Limits) (string, error) {
	title = strings.TrimSpace(title)
	if err := validate.Var(title, "required"); err != nil {
		return "", fmt.Errorf("title is required")
	}
	if limits.TitleMaxChars > 0 {
		if err := validate.Var(title, fmt.Sprintf("max=%d", limits.TitleMaxChars)); err != nil {
			return "", fmt.Errorf("title cannot exceed %d characters", limits.TitleMaxChars)
		}
	}
	return title, nil
}

// ValidateDescription checks the description length limit.
func ValidateDescription(description string, limits Limits) error {
	if limits.DescriptionMaxChars > 0 {
		if err := validate.Var(description, fmt.Sprintf("max=%d", limits.DescriptionMaxChars)); err != nil {
			return fmt.Errorf("description cannot exceed %d characters", limits.DescriptionMaxChars)
		}
	}
	return nil
}
