package extract

import (
	"errors"
	"fmt"
	"strings"

	"binday/internal/logger"
	"binday/internal/schedule"
	"binday/internal/vocab"
)

// ErrNoField is returned by a ValueFunc when no element has the requested id.
var ErrNoField = errors.New("no such field")

// ValueFunc returns the current value of the element with the given id.
type ValueFunc func(id string) (string, error)

// KnownFields reads the rendered date fields <prefix>1..<prefix>N of every
// configured bin type. Missing fields are skipped; any other read error ends
// the scan for that bin type.
func KnownFields(rules *vocab.Ruleset, value ValueFunc) []schedule.Collection {
	var found []schedule.Collection
	for _, bin := range rules.BinFields {
		var dates []string
		for i := 1; i <= rules.MaxFieldIndex; i++ {
			id := fmt.Sprintf("%s%d", bin.Prefix, i)
			v, err := value(id)
			if errors.Is(err, ErrNoField) {
				continue
			}
			if err != nil {
				logger.Debug("Failed to read date field", "id", id, "error", err)
				break
			}
			if v = strings.TrimSpace(v); v != "" {
				dates = append(dates, v)
			}
		}
		if len(dates) > 0 {
			found = append(found, schedule.Collection{BinType: bin.Label, Dates: dates})
		}
	}
	return found
}
