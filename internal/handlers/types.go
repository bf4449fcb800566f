package handlers

import "time"

// EncodeRequest is the request body for shortening a URL.
type EncodeRequest struct {
	Body struct {
		URL   string `doc:"The URL to shorten"          example:"https://example.com/very/long/path" json:"url"             maxLength:"2048"`
		Title string `doc:"Optional title for the link" example:"Example docs"                       json:"title,omitempty" maxLength:"255"  required:"false"`
	}
}

// EncodeResponse is the response for a successfully encoded URL.
type EncodeResponse struct {
	Headers struct {
		Location string `doc:"The short URL location" header:"Location"`
	}
	Body struct {
		Code        string `doc:"The short key"                example:"aZ3k9Q"                             json:"code"`
		RealURL     string `doc:"The redirecting short URL"    example:"http://localhost:8888/aZ3k9Q"       json:"realUrl"`
		DisplayURL  string `doc:"The human friendly short URL" example:"eaziurl.fz/aZ3k9Q"                  json:"displayUrl"`
		OriginalURL string `doc:"The original URL"             example:"https://example.com/very/long/path" json:"originalUrl"`
		Title       string `doc:"The title stored for the caller"                                           json:"title,omitempty"`
	}
}

// RedirectRequest is the request for resolving a short key.
type RedirectRequest struct {
	Code string `doc:"The short key" example:"aZ3k9Q" path:"code"`
}

// RedirectResponse redirects to the original URL.
type RedirectResponse struct {
	Status  int
	Headers struct {
		Location string `header:"Location"`
	}
}

// LinkItem is one entry of the caller's link list.
type LinkItem struct {
	OriginalURL string    `doc:"The original URL"          json:"originalUrl"`
	Code        string    `doc:"The short key"             json:"code"`
	Title       string    `doc:"The caller's title"        json:"title"`
	CreatedAt   time.Time `doc:"When the mapping was made" json:"createdAt"`
	RealURL     string    `doc:"The redirecting short URL" json:"realUrl"`
}

// ListLinksResponse lists the caller's links, oldest first.
type ListLinksResponse struct {
	Body []LinkItem
}
