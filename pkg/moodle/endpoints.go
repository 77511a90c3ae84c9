package moodle

import "strings"

const (
	// DefaultBaseURL is the Nalanda portal
	DefaultBaseURL = "http://nalanda.bits-pilani.ac.in"

	// LoginPath serves the login form and accepts its POST
	LoginPath = "/login/index.php"

	// MyCoursesPath is the landing page listing enrolled courses
	MyCoursesPath = "/my/"
)

// Endpoints builds portal URLs relative to a base URL
type Endpoints struct {
	Base string
}

// NewEndpoints trims any trailing slash from base; an empty base means the
// default portal
func NewEndpoints(base string) Endpoints {
	if base == "" {
		base = DefaultBaseURL
	}
	return Endpoints{Base: strings.TrimRight(base, "/")}
}

// Login returns the login form URL
func (e Endpoints) Login() string {
	return e.Base + LoginPath
}

// MyCourses returns the landing page URL
func (e Endpoints) MyCourses() string {
	return e.Base + MyCoursesPath
}

