package models

// Cookie is a single module-scoped authorization cookie.
type Cookie struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ModuleManifest is the resolved content of one module: its ordered video names and the
// cookies that authorize the module's video requests. It lives for one module pass.
type ModuleManifest struct {
	ModuleID   string
	VideoNames []string
	Cookies    []Cookie
}
