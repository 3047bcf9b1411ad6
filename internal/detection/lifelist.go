package detection

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/tphakala/birdstream/internal/errors"
)

// lifeListColumn is the CSV column holding the scientific name.
const lifeListColumn = 4

// LifeList is the set of species the user has already observed. Emitted
// detections of species not on the list are flagged as new. A nil LifeList
// flags nothing.
type LifeList struct {
	names map[string]bool
}

// LoadLifeList reads a life list CSV export. The scientific name is taken
// from the fifth column of each record and matched case-insensitively.
func LoadLifeList(path string) (*LifeList, error) {
	if path == "" {
		return nil, errors.Newf("life list path is not set in the configuration").
			Component("life-list").
			Category(errors.CategoryConfiguration).
			Build()
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component("life-list").
			Category(errors.CategoryConfiguration).
			Context("operation", "open").
			Build()
	}
	defer func() { _ = file.Close() }()

	names := make(map[string]bool)
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.New(err).
				Component("life-list").
				Category(errors.CategoryConfiguration).
				Context("operation", "read").
				Build()
		}
		if len(record) <= lifeListColumn {
			continue
		}
		names[strings.ToLower(record[lifeListColumn])] = true
	}

	return &LifeList{names: names}, nil
}

// Contains reports whether the scientific name is on the life list.
func (l *LifeList) Contains(scientificName string) bool {
	if l == nil {
		return false
	}
	return l.names[strings.ToLower(scientificName)]
}

// Len returns the number of species on the list.
func (l *LifeList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.names)
}
