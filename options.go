// Copyright (c) RBQL contributors.

package rbql

// options holds engine-wide configuration assembled from Option values:
// an unexported struct plus a getOpts helper.
type options struct {
	normalizeColumnNames bool
	debugMode            bool
	userInitCode         string
}

// Option configures a Query call.
type Option func(*options) error

func getDefaultOptions() options {
	return options{normalizeColumnNames: true}
}

func getOpts(opt ...Option) (options, error) {
	opts := getDefaultOptions()
	for _, o := range opt {
		if o == nil {
			continue
		}
		if err := o(&opts); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

// WithoutColumnNameNormalization disables a1/a["name"]-style binding in
// favor of using raw column names as bare identifiers directly.
func WithoutColumnNameNormalization() Option {
	return func(o *options) error {
		o.normalizeColumnNames = false
		return nil
	}
}

// WithDebugMode lets per-record errors propagate unwrapped instead of
// being translated to "At record N, Details: ...".
func WithDebugMode() Option {
	return func(o *options) error {
		o.debugMode = true
		return nil
	}
}

// WithUserInitCode is reserved for collaborators that support injecting
// source text evaluated before the main loop starts (e.g. defining
// helper functions for use inside the query). The core engine only
// stores it: Query does not evaluate it or pass it anywhere.
func WithUserInitCode(code string) Option {
	return func(o *options) error {
		o.userInitCode = code
		return nil
	}
}
