package internal

import "errors"

var ErrLinkNotFound = errors.New("link not found")
var ErrAmbiguousCode = errors.New("short code exists under more than one domain")
var ErrInvalidDestination = errors.New("destination is not a valid absolute url")
var ErrInvalidURL = errors.New("url must start with http:// or https://")
