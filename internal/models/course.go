package models

// RawModule is a module as exposed by the patched client bundle.
type RawModule struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RawSection is a section as exposed by the patched client bundle.
type RawSection struct {
	Name    string      `json:"name"`
	Modules []RawModule `json:"modules"`
}

// Module is a single lesson module. Its index inside the section is its identity.
type Module struct {
	ID   string
	Name string
}

// Section groups modules. Its index inside the course is its identity.
type Section struct {
	Name    string
	Modules []Module
}

// CourseTree is the read-only course structure the download pass walks.
type CourseTree struct {
	Name     string
	Sections []Section
}

// NewCourseTree builds a CourseTree from the raw bundle sections. The platform always
// lists a "getting started" section first; it carries no videos and is dropped.
func NewCourseTree(name string, raw []RawSection) *CourseTree {
	tree := &CourseTree{Name: name}
	if len(raw) == 0 {
		return tree
	}

	for _, rs := range raw[1:] {
		section := Section{Name: rs.Name, Modules: make([]Module, 0, len(rs.Modules))}
		for _, rm := range rs.Modules {
			section.Modules = append(section.Modules, Module{ID: rm.ID, Name: rm.Name})
		}
		tree.Sections = append(tree.Sections, section)
	}
	return tree
}

// ModuleCount returns the number of modules across all sections.
func (c *CourseTree) ModuleCount() int {
	total := 0
	for _, s := range c.Sections {
		total += len(s.Modules)
	}
	return total
}
