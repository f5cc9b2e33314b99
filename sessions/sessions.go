package sessions

// ID identifies one of the fixed training session offerings.
type ID string

const (
	AIX    ID = "aix"
	CANNES ID = "cannes"
	PARIS  ID = "paris"
	LONDON ID = "london"
	ONLINE ID = "online"
)

type Locale string

const (
	FR Locale = "fr"
	EN Locale = "en"
)

type Session struct {
	ID         ID
	LocationFR string
	LocationEN string
	DateFR     string
	DateEN     string
	Locale     Locale
}

var catalog = map[ID]Session{
	AIX: {
		ID:         AIX,
		LocationFR: "Aix-en-Provence, France",
		LocationEN: "Aix-en-Provence, France",
		DateFR:     "27-28 Juin 2025",
		DateEN:     "June 27-28, 2025",
		Locale:     FR,
	},
	CANNES: {
		ID:         CANNES,
		LocationFR: "Cannes, France",
		LocationEN: "Cannes, France",
		DateFR:     "12-13 Juillet 2025",
		DateEN:     "July 12-13, 2025",
		Locale:     FR,
	},
	PARIS: {
		ID:         PARIS,
		LocationFR: "Paris, France",
		LocationEN: "Paris, France",
		DateFR:     "26-27 Juillet 2025",
		DateEN:     "July 26-27, 2025",
		Locale:     FR,
	},
	LONDON: {
		ID:         LONDON,
		LocationFR: "Londres, Royaume-Uni",
		LocationEN: "London, UK",
		DateFR:     "5-6 Septembre 2025",
		DateEN:     "September 5-6, 2025",
		Locale:     EN,
	},
	ONLINE: {
		ID:         ONLINE,
		LocationFR: "Formation en ligne",
		LocationEN: "Online Training",
		DateFR:     "1 Septembre 2025",
		DateEN:     "September 1, 2025",
		Locale:     FR,
	},
}

func Get(id ID) (Session, bool) {
	s, ok := catalog[id]
	return s, ok
}

func IsValid(id ID) bool {
	_, ok := catalog[id]
	return ok
}

// Location returns the location string in the session's own locale.
func (s Session) Location() string {
	if s.Locale == EN {
		return s.LocationEN
	}
	return s.LocationFR
}

// Date returns the date string in the session's own locale.
func (s Session) Date() string {
	if s.Locale == EN {
		return s.DateEN
	}
	return s.DateFR
}
