package pipeline

import (
	"fmt"
	"strconv"

	"github.com/kiranshivaraju/caseflow/pkg/models"
)

// Group splits a flat, production-ordered list of image filenames into one
// group per document, consuming counts[i] filenames for document i. The
// counts must be the exact number of images each document produced.
func Group(filenames []string, counts []int) ([][]string, error) {
	total := 0
	for i, n := range counts {
		if n < 0 {
			return nil, fmt.Errorf("document %d: negative image count %d", i+1, n)
		}
		total += n
	}
	if total != len(filenames) {
		return nil, fmt.Errorf("image counts sum to %d but %d images were produced", total, len(filenames))
	}

	groups := make([][]string, len(counts))
	next := 0
	for i, n := range counts {
		groups[i] = make([]string, n)
		copy(groups[i], filenames[next:next+n])
		next += n
	}
	return groups, nil
}

// BuildClinicalData replaces each filename with its storage key and numbers
// the non-empty groups "1", "2", ... in document order. Documents that
// produced no images get no entry.
func BuildClinicalData(groups [][]string, keys map[string]string) (models.ClinicalData, error) {
	data := make(models.ClinicalData, len(groups))
	seen := make(map[string]bool)
	idx := 0

	for _, group := range groups {
		if len(group) == 0 {
			continue
		}
		idx++
		storageKeys := make([]string, 0, len(group))
		for _, name := range group {
			key, ok := keys[name]
			if !ok {
				return nil, fmt.Errorf("no storage key for %s", name)
			}
			if seen[key] {
				return nil, fmt.Errorf("storage key %s assigned to more than one image", key)
			}
			seen[key] = true
			storageKeys = append(storageKeys, key)
		}
		data[strconv.Itoa(idx)] = storageKeys
	}
	return data, nil
}
