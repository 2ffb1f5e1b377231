package pipeline

import (
	"fmt"
	"testing"

	"github.com/kiranshivaraju/caseflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seqNames(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("i%d.jpeg", i+1)
	}
	return out
}

func TestGroup(t *testing.T) {
	tests := []struct {
		name   string
		counts []int
		want   [][]string
	}{
		{"single document", []int{3}, [][]string{{"i1.jpeg", "i2.jpeg", "i3.jpeg"}}},
		{"unequal pages", []int{2, 1}, [][]string{{"i1.jpeg", "i2.jpeg"}, {"i3.jpeg"}}},
		{"short first document", []int{1, 4}, [][]string{{"i1.jpeg"}, {"i2.jpeg", "i3.jpeg", "i4.jpeg", "i5.jpeg"}}},
		{"empty document in the middle", []int{1, 0, 2}, [][]string{{"i1.jpeg"}, {}, {"i2.jpeg", "i3.jpeg"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total := 0
			for _, c := range tt.counts {
				total += c
			}
			got, err := Group(seqNames(total), tt.counts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGroup_SizesSumAndOrderPreserved(t *testing.T) {
	counts := []int{5, 1, 0, 3, 7, 2}
	names := seqNames(18)

	groups, err := Group(names, counts)
	require.NoError(t, err)
	require.Len(t, groups, len(counts))

	var flat []string
	for i, g := range groups {
		assert.Len(t, g, counts[i])
		flat = append(flat, g...)
	}
	assert.Equal(t, names, flat, "concatenated groups must reproduce production order")
}

func TestGroup_IsPure(t *testing.T) {
	names := seqNames(4)
	counts := []int{3, 1}

	a, err := Group(names, counts)
	require.NoError(t, err)
	b, err := Group(names, counts)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	a[0][0] = "mutated"
	assert.Equal(t, "i1.jpeg", names[0], "groups must not alias the input")
}

func TestGroup_CountMismatch(t *testing.T) {
	_, err := Group(seqNames(3), []int{1, 1})
	assert.Error(t, err)

	_, err = Group(seqNames(1), []int{1, 1})
	assert.Error(t, err)
}

func TestGroup_NegativeCount(t *testing.T) {
	_, err := Group(seqNames(1), []int{2, -1})
	assert.ErrorContains(t, err, "negative")
}

func TestBuildClinicalData(t *testing.T) {
	groups := [][]string{{"i1.jpeg", "i2.jpeg"}, {"i3.jpeg"}}
	keys := map[string]string{"i1.jpeg": "k1", "i2.jpeg": "k2", "i3.jpeg": "k3"}

	data, err := BuildClinicalData(groups, keys)
	require.NoError(t, err)
	assert.Equal(t, models.ClinicalData{"1": {"k1", "k2"}, "2": {"k3"}}, data)
}

func TestBuildClinicalData_SkipsEmptyGroupsAndRenumbers(t *testing.T) {
	groups := [][]string{{}, {"i1.jpeg"}, {}, {"i2.jpeg"}}
	keys := map[string]string{"i1.jpeg": "k1", "i2.jpeg": "k2"}

	data, err := BuildClinicalData(groups, keys)
	require.NoError(t, err)
	assert.Equal(t, models.ClinicalData{"1": {"k1"}, "2": {"k2"}}, data)
}

func TestBuildClinicalData_MissingKey(t *testing.T) {
	_, err := BuildClinicalData([][]string{{"i1.jpeg"}}, map[string]string{})
	assert.ErrorContains(t, err, "i1.jpeg")
}

func TestBuildClinicalData_DuplicateKey(t *testing.T) {
	_, err := BuildClinicalData([][]string{{"i1.jpeg"}, {"i2.jpeg"}}, map[string]string{"i1.jpeg": "k", "i2.jpeg": "k"})
	assert.ErrorContains(t, err, "more than one")
}
