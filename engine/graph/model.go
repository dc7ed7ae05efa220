package graph

// CityStat is one city node with its listing count.
type CityStat struct {
	Name     string `json:"name"`
	Listings int64  `json:"listings"`
}

// ListingNode is the projection of a listing stored in the graph. The
// vector index holds the full payload; the graph keeps just enough to
// answer city-level browse queries.
type ListingNode struct {
	ID     int64   `json:"id"`
	Title  string  `json:"title"`
	City   string  `json:"city"`
	Rating float64 `json:"rating"`
	URL    string  `json:"url"`
}
