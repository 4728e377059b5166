package revenue

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/revdash/backend/internal/domain/sales"
)

// LoadFixture reads a demo snapshot from a JSON file. Unknown providers are
// rejected so that fixture data cannot bypass provider parsing.
func LoadFixture(path string) (sales.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return sales.Snapshot{}, fmt.Errorf("read fixture: %w", err)
	}

	var snap sales.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return sales.Snapshot{}, fmt.Errorf("decode fixture %s: %w", path, err)
	}

	for _, o := range snap.Orders {
		if !o.Provider.IsValid() {
			return sales.Snapshot{}, fmt.Errorf("fixture order %s: %w: %q", o.ID, sales.ErrUnknownProvider, o.Provider)
		}
	}
	for _, p := range snap.Products {
		if !p.Provider.IsValid() {
			return sales.Snapshot{}, fmt.Errorf("fixture product %s: %w: %q", p.ID, sales.ErrUnknownProvider, p.Provider)
		}
	}
	for _, st := range snap.Stores {
		if !st.Provider.IsValid() {
			return sales.Snapshot{}, fmt.Errorf("fixture store %s: %w: %q", st.ID, sales.ErrUnknownProvider, st.Provider)
		}
	}
	return snap, nil
}
