package domain

// Hashing and banding defaults. With 100 hashes and bands of 5 rows there
// are 20 bands and the S-curve threshold sits near 0.55.
const (
	// DefaultNumHashes is the signature length.
	DefaultNumHashes = 100

	// DefaultSeed seeds the hash coefficient generator. Signatures are only
	// comparable between corpora built with the same seed.
	DefaultSeed uint64 = 0x5eed_1234_cafe_babe

	// DefaultBandWidth is the number of rows per band.
	DefaultBandWidth = 5

	// DefaultMinBandMatches is how many band-buckets a candidate must share.
	DefaultMinBandMatches = 1
)

// Ranking and recommendation defaults.
const (
	DefaultTopK                = 10
	DefaultSimilarityThreshold = 0.0
	DefaultScoreMode           = "signature"
	DefaultItemCount           = 10
	DefaultItemWeighting       = "mean"
)

// Ratings input defaults, matching the MovieLens ratings.csv layout.
const (
	DefaultEntityColumn = "userId"
	DefaultItemColumn   = "movieId"
	DefaultRatingColumn = "rating"
	DefaultMinRating    = 0.0
	DefaultDelimiter    = ","
)

// DefaultIncludePatterns selects the files read from input directories.
var DefaultIncludePatterns = []string{"**/*.csv"}

// Estimation accuracy defaults.
const (
	DefaultEvalSampleSize = 100
	DefaultEvalThreshold  = 0.5
	DefaultEvalMaxResults = 20
)

// DefaultCurveBandWidths are the band widths tabulated by the curve command.
var DefaultCurveBandWidths = []int{1, 2, 4, 5, 10, 20}

// DefaultCurveStep is the similarity grid spacing of the curve table.
const DefaultCurveStep = 0.1

// Performance defaults. Zero workers means one per CPU.
const (
	DefaultWorkers        = 0
	DefaultTimeoutSeconds = 300
)

// Server defaults.
const (
	DefaultServerAddress      = ":8080"
	DefaultCacheSize          = 1024
	DefaultReadTimeoutSeconds = 15
)

// Logging defaults.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
)

// DefaultConfigFileName is the project configuration file discovered by walking up from the working directory.
const DefaultConfigFileName = ".simrec.toml"
