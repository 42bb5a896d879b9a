package types

// OperationKind identifies a batch operation
type OperationKind string

const (
	OpMove       OperationKind = "move"
	OpCopy       OperationKind = "copy"
	OpDelete     OperationKind = "delete"
	OpRename     OperationKind = "rename"
	OpUpload     OperationKind = "upload"
	OpNewFolder  OperationKind = "newFolder"
	OpNewFile    OperationKind = "newFile"
	OpShortcut   OperationKind = "shortcut"
	OpZip        OperationKind = "zip"
	OpUnzip      OperationKind = "unzip"
	OpEmptyTrash OperationKind = "emptyTrash"
)

// Batch reports whether the kind usually spans many items. Batch kinds use
// the longer progress threshold.
func (k OperationKind) Batch() bool {
	switch k {
	case OpMove, OpCopy, OpDelete, OpUpload, OpZip, OpUnzip, OpEmptyTrash:
		return true
	}
	return false
}

// Abortable reports whether in-flight transfers of this kind can be aborted
func (k OperationKind) Abortable() bool {
	return k == OpUpload || k == OpZip
}

// Valid reports whether k is a known kind
func (k OperationKind) Valid() bool {
	switch k {
	case OpMove, OpCopy, OpDelete, OpRename, OpUpload, OpNewFolder, OpNewFile,
		OpShortcut, OpZip, OpUnzip, OpEmptyTrash:
		return true
	}
	return false
}
