package edge

import "strings"

const (
	TypeHTML    = "text/html; charset=UTF-8"
	TypeXML     = "application/xml; charset=UTF-8"
	TypeText    = "text/plain; charset=UTF-8"
	TypeDefault = "application/octet-stream"
)

// contentTypes is checked in order, first matching suffix wins.
var contentTypes = []struct {
	suffix string
	mime   string
}{
	{".html", TypeHTML},
	{".css", "text/css; charset=UTF-8"},
	{".js", "application/javascript; charset=UTF-8"},
	{".svg", "image/svg+xml"},
	{".png", "image/png"},
	{".jpg", "image/jpeg"},
	{".jpeg", "image/jpeg"},
	{".webp", "image/webp"},
	{".woff2", "font/woff2"},
	{".xml", TypeXML},
}

// ContentType maps a path to the MIME type the router advertises for it.
func ContentType(path string) string {
	for _, ct := range contentTypes {
		if strings.HasSuffix(path, ct.suffix) {
			return ct.mime
		}
	}
	return TypeDefault
}
