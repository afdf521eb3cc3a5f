package restclient

import "time"

// Backend collection records. Only the fields the console reads are
// modeled; the backend may return more.

// Movie is a catalog entry.
type Movie struct {
	ID          string   `json:"_id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Genres      []string `json:"genres,omitempty"`
	Duration    int      `json:"duration,omitempty"`
	ReleaseDate string   `json:"releaseDate,omitempty"`
	Status      string   `json:"status,omitempty"`
	PosterURL   string   `json:"posterUrl,omitempty"`
}

// Theater is a cinema location.
type Theater struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Address  string `json:"address,omitempty"`
	City     string `json:"city,omitempty"`
	Phone    string `json:"phone,omitempty"`
	IsActive bool   `json:"isActive,omitempty"`
}

// Hall is an auditorium within a theater.
type Hall struct {
	ID        string `json:"_id"`
	Name      string `json:"name"`
	TheaterID string `json:"theaterId,omitempty"`
	Capacity  int    `json:"capacity,omitempty"`
	Type      string `json:"type,omitempty"`
}

// Showtime is a scheduled screening.
type Showtime struct {
	ID        string    `json:"_id"`
	MovieID   string    `json:"movieId,omitempty"`
	HallID    string    `json:"hallId,omitempty"`
	StartTime time.Time `json:"startTime,omitempty"`
	EndTime   time.Time `json:"endTime,omitempty"`
	Price     float64   `json:"price,omitempty"`
	Status    string    `json:"status,omitempty"`
}

// Booking is a customer reservation.
type Booking struct {
	ID          string   `json:"_id"`
	Code        string   `json:"code,omitempty"`
	UserID      string   `json:"userId,omitempty"`
	ShowtimeID  string   `json:"showtimeId,omitempty"`
	Seats       []string `json:"seats,omitempty"`
	TotalAmount float64  `json:"totalAmount,omitempty"`
	Status      string   `json:"status,omitempty"`
}

// Seat is one seat within a hall layout.
type Seat struct {
	ID       string  `json:"_id"`
	HallID   string  `json:"hallId,omitempty"`
	Row      string  `json:"row,omitempty"`
	Number   int     `json:"number,omitempty"`
	Type     string  `json:"type,omitempty"`
	Price    float64 `json:"price,omitempty"`
	IsActive bool    `json:"isActive,omitempty"`
}

// Payment is a processed transaction for a booking.
type Payment struct {
	ID        string  `json:"_id"`
	BookingID string  `json:"bookingId,omitempty"`
	Amount    float64 `json:"amount,omitempty"`
	Method    string  `json:"method,omitempty"`
	Status    string  `json:"status,omitempty"`
	PaidAt    string  `json:"paidAt,omitempty"`
}

// Invoice is the billing record issued for a booking.
type Invoice struct {
	ID        string  `json:"_id"`
	Number    string  `json:"number,omitempty"`
	BookingID string  `json:"bookingId,omitempty"`
	Amount    float64 `json:"amount,omitempty"`
	Status    string  `json:"status,omitempty"`
	IssuedAt  string  `json:"issuedAt,omitempty"`
}

// Promotion is a discount campaign.
type Promotion struct {
	ID        string  `json:"_id"`
	Code      string  `json:"code"`
	Type      string  `json:"type,omitempty"`
	Value     float64 `json:"value,omitempty"`
	StartDate string  `json:"startDate,omitempty"`
	EndDate   string  `json:"endDate,omitempty"`
	IsActive  bool    `json:"isActive,omitempty"`
}
