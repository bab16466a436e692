package web

import "embed"

// Templates holds the server-rendered pages; layout.html wraps every page.
//
//go:embed templates/*.html
var Templates embed.FS

//go:embed static/*
var Static embed.FS
