// Package features turns error records into a sparse bag-of-features
// representation and projects it into fixed-size dense vectors via a
// persisted feature-index map.
package features

// Kind identifies the category of a feature. Features are a tagged
// union of kind, key, and numeric value so the feature space is
// statically enumerable and serializable.
type Kind string

const (
	KindErrorType     Kind = "error_type"
	KindStatusCode    Kind = "status_code"
	KindBrowser       Kind = "browser"
	KindOS            Kind = "os"
	KindEnvironment   Kind = "environment"
	KindMessageToken  Kind = "message_token"
	KindFileToken     Kind = "file_token"
	KindFunctionToken Kind = "function_token"
)

// Feature is one entry of the sparse bag-of-features map.
type Feature struct {
	Kind  Kind    `json:"kind"`
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// Name is the canonical index key for a feature, unique per kind+key.
func (f Feature) Name() string {
	return string(f.Kind) + ":" + f.Key
}
