package models

// UploadTarget associates an image filename with a pre-signed upload URL
// and the storage key the upload writes to. Targets expire and are never
// reused across requests.
type UploadTarget struct {
	Filename   string
	UploadURL  string
	StorageKey string
}
