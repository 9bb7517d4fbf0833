package models

// FileRef points at an object held in external storage. The bytes never pass
// through this service except via the upload proxy.
type FileRef struct {
	URL      string `bson:"url,omitempty" json:"url,omitempty"`
	Provider string `bson:"provider,omitempty" json:"provider,omitempty"`
	Key      string `bson:"key,omitempty" json:"key,omitempty"`
}
