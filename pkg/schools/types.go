package schools

import "sort"

// PublicImagePrefix is the URL prefix under which uploaded images are served.
const PublicImagePrefix = "/schoolImages"

// School represents a single school record
type School struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Address string  `json:"address"`
	City    string  `json:"city"`
	State   string  `json:"state"`
	Contact *int64  `json:"contact"`
	Image   *string `json:"image"`
	EmailID string  `json:"email_id"`
}

// SortByIDDesc orders schools newest first, in place.
func SortByIDDesc(list []*School) {
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID > list[j].ID
	})
}
