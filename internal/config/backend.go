package config

// Backend abstracts config storage so the loader and the `config set`
// command don't care where values live. The default backend is a flat JSON
// file in an XDG-compatible path.
type Backend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
}
