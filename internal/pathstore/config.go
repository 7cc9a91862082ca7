package pathstore

type Driver string

const (
	DriverJSON   Driver = "json"
	DriverBadger Driver = "badger"
)

type Config struct {
	Driver Driver
	// File is the JSON document used by DriverJSON.
	File string
	// DataDir is the database directory used by DriverBadger.
	DataDir string
}
