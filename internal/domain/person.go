package domain

import "strings"

// Gender is the self-declared gender of a person. The empty value means
// unknown.
type Gender string

const (
	// Male is the gender label for men.
	Male Gender = "male"
	// Female is the gender label for women.
	Female Gender = "female"
)

// Person is a member of the social graph. People are both the subjects
// and the candidates of the friends recommendation engine.
type Person struct {
	ID     string `json:"id" yaml:"id" validate:"required"`
	Name   string `json:"name" yaml:"name" validate:"required"`
	Gender Gender `json:"gender,omitempty" yaml:"gender,omitempty"`
	// Age in years. Zero means unknown.
	Age  int    `json:"age,omitempty" yaml:"age,omitempty" validate:"gte=0,lte=150"`
	City string `json:"city,omitempty" yaml:"city,omitempty"`
}

// HasAge reports whether the person's age is known.
func (p Person) HasAge() bool { return p.Age > 0 }

// Label returns the value of a named attribute, used by label matching
// units. Unknown attributes return the empty string.
func (p Person) Label(attribute string) string {
	switch strings.ToLower(attribute) {
	case "gender":
		return string(p.Gender)
	case "city":
		return p.City
	case "name":
		return p.Name
	default:
		return ""
	}
}

// String returns the display name, falling back to the id.
func (p Person) String() string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}
