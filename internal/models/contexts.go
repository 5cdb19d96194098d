package models

// SectionContext identifies the section being walked.
type SectionContext struct {
	Index int
	Name  string
}

// ModuleContext identifies the module being downloaded.
type ModuleContext struct {
	Section SectionContext
	Index   int
	ID      string
	Name    string
}
