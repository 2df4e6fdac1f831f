package server

import "errors"

var (
	ErrDocumentsRequired   = errors.New("document registry required")
	ErrIngesterRequired    = errors.New("ingestion pipeline required")
	ErrIndexLoaderRequired = errors.New("index loader required")
	ErrAnswererRequired    = errors.New("answerer required")
	ErrChatRequired        = errors.New("chat service required")
	ErrProvidersRequired   = errors.New("provider list required")
)
