package portfolio

// DefaultImageName is used when an upload does not carry a name
const DefaultImageName = "Untitled"

// DefaultMediaFolder is the logical folder images are uploaded into
const DefaultMediaFolder = "artist_portfolio"

const (
	StoreDriverMongoDB  = "mongodb"
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
)

const (
	DevelopmentEnvironment = "development"
	ProductionEnvironment  = "production"
)
