package container

// DatasetOption configures dataset creation.
type DatasetOption func(*datasetOptions)

type datasetOptions struct {
	chunks  []uint64
	maxDims []uint64
}

// WithChunks stores the dataset in chunks of the given extent. Chunked
// datasets must be one-dimensional.
func WithChunks(dims ...uint64) DatasetOption {
	return func(o *datasetOptions) {
		o.chunks = dims
	}
}

// WithMaxDims sets the maximum dimensions. Use [message.Unlimited] for an
// axis without limit.
func WithMaxDims(dims ...uint64) DatasetOption {
	return func(o *datasetOptions) {
		o.maxDims = dims
	}
}
