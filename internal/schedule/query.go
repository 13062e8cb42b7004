package schedule

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Query identifies the property to look up.
type Query struct {
	StreetNumber string `validate:"required"`
	Postcode     string `validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewQuery trims both values and validates that neither is empty. The
// postcode is kept as given.
func NewQuery(streetNumber, postcode string) (Query, error) {
	q := Query{
		StreetNumber: strings.TrimSpace(streetNumber),
		Postcode:     strings.TrimSpace(postcode),
	}
	if err := validate.Struct(q); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			missing := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				missing = append(missing, fe.Field())
			}
			return q, fmt.Errorf("both street number and postcode are required (missing %s)", strings.Join(missing, ", "))
		}
		return q, err
	}
	return q, nil
}

func (q Query) String() string {
	return fmt.Sprintf("%s, postcode %s", q.StreetNumber, q.Postcode)
}
