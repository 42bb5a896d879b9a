package desktop

import (
	"sort"
	"strings"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/types"
)

// SortBy is the sort key of a container
type SortBy string

const (
	SortByName     SortBy = "name"
	SortBySize     SortBy = "size"
	SortByModified SortBy = "modified"
	SortByType     SortBy = "type"
)

// SortOrder is the sort direction of a container
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ParseSort validates a key and direction, falling back to name/asc
func ParseSort(by, order string) (SortBy, SortOrder) {
	key := SortBy(strings.ToLower(by))
	switch key {
	case SortByName, SortBySize, SortByModified, SortByType:
	default:
		key = SortByName
	}
	dir := SortOrder(strings.ToLower(order))
	if dir != SortDesc {
		dir = SortAsc
	}
	return key, dir
}

// Less orders two items by key and direction. Names compare
// case-insensitively and break ties for every key.
func Less(a, b types.Item, by SortBy, order SortOrder) bool {
	cmp := compare(a, b, by)
	if cmp == 0 {
		cmp = strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	}
	if cmp == 0 {
		cmp = strings.Compare(a.UID, b.UID)
	}
	if order == SortDesc {
		return cmp > 0
	}
	return cmp < 0
}

// SortItems sorts items in place
func SortItems(items []types.Item, by SortBy, order SortOrder) {
	sort.SliceStable(items, func(i, j int) bool {
		return Less(items[i], items[j], by, order)
	})
}

func compare(a, b types.Item, by SortBy) int {
	switch by {
	case SortBySize:
		return cmpInt(a.Size, b.Size)
	case SortByModified:
		return cmpInt(a.Modified, b.Modified)
	case SortByType:
		return strings.Compare(typeKey(a), typeKey(b))
	default:
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	}
}

func typeKey(i types.Item) string {
	if i.IsDir {
		return ""
	}
	if i.Type != "" {
		return strings.ToLower(i.Type)
	}
	return i.Extension()
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
