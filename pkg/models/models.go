package models

// Course is an enrolled course as listed on the landing page
type Course struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Section is one topic block of a course page
type Section struct {
	Name  string   `json:"name"`
	Links []string `json:"links"`
}

// Page is a content page reduced to text
type Page struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}
