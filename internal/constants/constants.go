package constants

const (
	// AppName is used for the keyring service name and log prefix
	AppName = "assistant"

	// DefaultKeyringUser is the keyring account under which the
	// database connection string is stored
	DefaultKeyringUser = "default"

	// DefaultUser is the owner id the CLI operates as
	DefaultUser = "local"

	// DateFormat is the canonical calendar-date layout (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the working-hours clock layout (HH:MM)
	TimeFormat = "15:04"
)
