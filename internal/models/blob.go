package models

// OperationType names the kind of operation a Blob request/result describes.
type OperationType string

const (
	OperationUpload   OperationType = "upload"
	OperationDownload OperationType = "download"
	OperationDelete   OperationType = "delete"
	OperationList     OperationType = "list"
)

// BackupType is an opaque tag describing the originating backend. It has no
// semantic effect on the job queue core — it is carried through for audit
// and client display purposes only.
type BackupType string

const (
	BackupDisk  BackupType = "disk"
	BackupAWS   BackupType = "aws"
	BackupGCS   BackupType = "gcs"
	BackupAzure BackupType = "azure"
)

// DefaultContentType is used when a Blob request omits one.
const DefaultContentType = "application/octet-stream"

// DefaultEncoding is used when a Blob request omits one.
const DefaultEncoding = "utf-8"

// Blob is the request/response envelope that crosses the storage/transport
// boundary. Path is the canonical join of Namespace and Key and is the
// unique address used by every downstream component.
type Blob struct {
	Key           string        `json:"key"`
	Namespace     string        `json:"namespace"`
	Filename      string        `json:"filename"`
	Path          string        `json:"path"`
	ContentType   string        `json:"content_type"`
	OperationType OperationType `json:"operation_type"`
	BackupType    BackupType    `json:"backup_type"`
	Encoding      string        `json:"encoding"`
	Data          []byte        `json:"data,omitempty"`
	Error         string        `json:"error,omitempty"`
}

// JoinPath builds the canonical path for a namespace/key pair. Every
// component that addresses a blob or its metadata row MUST derive the path
// through this function so the two agree bit-for-bit.
func JoinPath(namespace, key string) string {
	return namespace + "/" + key
}

// NewBlob constructs a Blob with defaults applied (content type, encoding,
// and the derived Path) from the caller-supplied fields.
func NewBlob(namespace, key, filename string, op OperationType, backup BackupType, contentType, encoding string) *Blob {
	if contentType == "" {
		contentType = DefaultContentType
	}
	if encoding == "" {
		encoding = DefaultEncoding
	}
	return &Blob{
		Key:           key,
		Namespace:     namespace,
		Filename:      filename,
		Path:          JoinPath(namespace, key),
		ContentType:   contentType,
		OperationType: op,
		BackupType:    backup,
		Encoding:      encoding,
	}
}
