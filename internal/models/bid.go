package models

// BidType is the issuing-jurisdiction category of a bid.
type BidType = string

const (
	TypeMunicipal BidType = "Municipal"
	TypeCounty    BidType = "County"
	TypeState     BidType = "State"
)

// KnownTypes lists the types the dashboard counts and offers as filters, in display order.
var KnownTypes = []BidType{TypeMunicipal, TypeCounty, TypeState}

// Bid is a procurement opportunity as served by the monitor API.
// Empty strings mean the field was absent.
type Bid struct {
	Title       string  `json:"title"`
	Type        BidType `json:"type"`
	Location    string  `json:"location"`
	Description string  `json:"description,omitempty"`
	BidNumber   string  `json:"bid_number"`
	PostedDate  string  `json:"posted_date"`
	Deadline    string  `json:"deadline,omitempty"`
	Source      string  `json:"source"`
	URL         string  `json:"url"`
}

type BidsResponse struct {
	Success    bool       `json:"success"`
	Bids       []Bid      `json:"bids"`
	Count      int        `json:"count"`
	LastUpdate *Timestamp `json:"last_update"`
}

type RefreshResponse struct {
	Success    bool       `json:"success"`
	Message    string     `json:"message,omitempty"`
	BidsCount  int        `json:"bids_count"`
	LastUpdate *Timestamp `json:"last_update"`
	RunID      string     `json:"run_id,omitempty"`
}

// Statistics holds per-type counts over a bid list.
type Statistics struct {
	Total     int `json:"total"`
	Municipal int `json:"municipal"`
	County    int `json:"county"`
	State     int `json:"state"`
}

type StatisticsResponse struct {
	Success    bool       `json:"success"`
	Statistics Statistics `json:"statistics"`
	LastUpdate *Timestamp `json:"last_update"`
}

type HealthResponse struct {
	Status        string     `json:"status"`
	Message       string     `json:"message"`
	BidsCount     int        `json:"bids_count"`
	LastUpdate    *Timestamp `json:"last_update"`
	MonitorActive bool       `json:"monitor_active"`
}

// CountByType computes literal per-type counts over bids. Total is len(bids).
func CountByType(bids []Bid) Statistics {
	stats := Statistics{Total: len(bids)}
	for _, b := range bids {
		switch b.Type {
		case TypeMunicipal:
			stats.Municipal++
		case TypeCounty:
			stats.County++
		case TypeState:
			stats.State++
		}
	}
	return stats
}
