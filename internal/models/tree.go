package models

// RootNodeID is the id of the virtual tree root.
const RootNodeID = "root"

// TreeNodeType distinguishes folder nodes from file leaves.
type TreeNodeType string

const (
	NodeFolder TreeNodeType = "folder"
	NodeFile   TreeNodeType = "file"
)

// TreeNode is one virtual folder or file leaf derived from the index.
type TreeNode struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	NodeType    TreeNodeType `json:"nodeType"`
	HasChildren bool         `json:"hasChildren"`
	AssetID     string       `json:"assetId,omitempty"`
}
