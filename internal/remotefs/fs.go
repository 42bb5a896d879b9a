package remotefs

import (
	"context"
	"encoding/json"
	"io"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/types"
)

// FS is the cloud filesystem contract consumed by the engine
type FS interface {
	// Stat accepts an absolute path or a uid
	Stat(ctx context.Context, ref string) (types.Item, error)
	Readdir(ctx context.Context, path string) ([]types.Item, error)
	Move(ctx context.Context, req MoveRequest) (MoveResult, error)
	Copy(ctx context.Context, req CopyRequest) (CopyResult, error)
	Delete(ctx context.Context, req DeleteRequest) error
	Rename(ctx context.Context, req RenameRequest) (types.Item, error)
	Mkdir(ctx context.Context, req MkdirRequest) (MkdirResult, error)
	Upload(ctx context.Context, req UploadRequest, progress ProgressFunc) ([]UploadedItem, error)
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, req WriteRequest) (types.Item, error)
	Sign(ctx context.Context, items []SignItem) ([]Signature, error)
	SuggestApps(ctx context.Context, uid string) ([]string, error)
	Whoami(ctx context.Context) (User, error)
}

// ProgressFunc receives the percentage (0 to 100) of an upload
type ProgressFunc func(percent int)

// MoveRequest moves Source (a uid or an absolute path) into the
// Destination directory.
type MoveRequest struct {
	Source               string          `json:"source"`
	Destination          string          `json:"destination"`
	Overwrite            bool            `json:"overwrite"`
	NewName              string          `json:"new_name,omitempty"`
	CreateMissingParents bool            `json:"create_missing_parents,omitempty"`
	NewMetadata          json.RawMessage `json:"new_metadata,omitempty"`
	Originator           string          `json:"original_client_socket_id,omitempty"`
}

// MoveResult is the server's view of a completed move
type MoveResult struct {
	Moved             types.Item   `json:"moved"`
	OldPath           string       `json:"old_path"`
	Overwritten       string       `json:"overwritten,omitempty"`
	ParentDirsCreated []types.Item `json:"parent_dirs_created,omitempty"`
}

// CopyRequest copies Source (uid or path) into Destination
type CopyRequest struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Overwrite   bool   `json:"overwrite"`
	DedupeName  bool   `json:"dedupe_name,omitempty"`
	NewName     string `json:"new_name,omitempty"`
	Originator  string `json:"original_client_socket_id,omitempty"`
}

// CopyResult describes the created copy
type CopyResult struct {
	Copied      types.Item `json:"copied"`
	Overwritten string     `json:"overwritten,omitempty"`
}

// DeleteRequest deletes Paths. With DescendantsOnly the directories
// themselves are kept and only their contents are removed.
type DeleteRequest struct {
	Paths           []string `json:"paths"`
	DescendantsOnly bool     `json:"descendants_only,omitempty"`
	Recursive       bool     `json:"recursive"`
	Originator      string   `json:"original_client_socket_id,omitempty"`
}

// RenameRequest renames the entry identified by UID
type RenameRequest struct {
	UID        string `json:"uid"`
	NewName    string `json:"new_name"`
	Originator string `json:"original_client_socket_id,omitempty"`
}

// MkdirRequest creates the directory Name under Parent
type MkdirRequest struct {
	Parent               string `json:"parent"`
	Name                 string `json:"path"`
	Overwrite            bool   `json:"overwrite,omitempty"`
	DedupeName           bool   `json:"dedupe_name,omitempty"`
	CreateMissingParents bool   `json:"create_missing_parents,omitempty"`
	// ShortcutTo makes the new entry a shortcut to the given uid
	ShortcutTo string `json:"shortcut_to,omitempty"`
	Originator string `json:"original_client_socket_id,omitempty"`
}

// MkdirResult describes the created directory
type MkdirResult struct {
	Item              types.Item   `json:"item"`
	ParentDirsCreated []types.Item `json:"parent_dirs_created,omitempty"`
}

// UploadFile is one file of an upload. RelPath may contain directories,
// which the server creates under the upload destination.
type UploadFile struct {
	RelPath string
	Size    int64
	Open    func() (io.ReadCloser, error)
}

// UploadRequest uploads Files into Destination
type UploadRequest struct {
	Destination          string
	Files                []UploadFile
	Overwrite            bool
	DedupeName           bool
	CreateMissingParents bool
	Originator           string
}

// UploadedItem is one written file with the directories the server had to
// create for it, outermost first
type UploadedItem struct {
	types.Item
	ParentDirsCreated []types.Item `json:"parent_dirs_created,omitempty"`
}

// WriteRequest writes Data as the file Name under Destination
type WriteRequest struct {
	Destination          string
	Name                 string
	Data                 []byte
	Overwrite            bool
	DedupeName           bool
	CreateMissingParents bool
	// ShortcutTo makes the new entry a shortcut to the given uid
	ShortcutTo string
	Originator string
}

// SignItem requests a signed URL for an entry
type SignItem struct {
	UID    string `json:"uid"`
	Action string `json:"action"`
}

// Signature is a signed URL returned by Sign
type Signature struct {
	UID      string `json:"uid"`
	Path     string `json:"path"`
	ReadURL  string `json:"read_url,omitempty"`
	WriteURL string `json:"write_url,omitempty"`
	Expires  int64  `json:"expires"`
}

// User is the authenticated account
type User struct {
	Username       string `json:"username"`
	UUID           string `json:"uuid"`
	Email          string `json:"email,omitempty"`
	EmailConfirmed bool   `json:"email_confirmed"`
}
