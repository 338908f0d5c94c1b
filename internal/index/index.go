// Package index holds the immutable in-memory asset index built by a
// scan. An index is never mutated after construction; refreshes build
// a new index and swap it in atomically.
package index

import (
	"sort"
	"strings"
	"sync"

	"github.com/craftscan/craftscan/internal/models"
)

// SearchFilter narrows a search. Query tokens are ANDed substring
// matches against the lowercased asset key. FolderNodeID restricts
// results to one subtree; empty or root means all records. A record is
// returned only when the toggle for its kind is set, so a filter with
// every kind toggle off matches nothing.
type SearchFilter struct {
	Query         string `json:"query"`
	FolderNodeID  string `json:"folderNodeId,omitempty"`
	IncludeImages bool   `json:"includeImages,omitempty"`
	IncludeAudio  bool   `json:"includeAudio,omitempty"`
	IncludeOther  bool   `json:"includeOther,omitempty"`
	Offset        int    `json:"offset"`
	Limit         int    `json:"limit"`
}

// matchesKind applies the three-way kind filter.
func (f SearchFilter) matchesKind(rec *models.AssetRecord) bool {
	switch {
	case rec.IsImage:
		return f.IncludeImages
	case rec.IsAudio:
		return f.IncludeAudio
	default:
		return f.IncludeOther
	}
}

// Index is an immutable snapshot of scanned assets.
type Index struct {
	records   []models.AssetRecord
	keysLower []string
	folderIDs []string
	byID      map[string]int

	treeOnce sync.Once
	children map[string][]models.TreeNode
}

// New builds an index over records. Record order is preserved and
// defines search result order.
func New(records []models.AssetRecord) *Index {
	ix := &Index{
		records:   records,
		keysLower: make([]string, len(records)),
		folderIDs: make([]string, len(records)),
		byID:      make(map[string]int, len(records)),
	}
	for i := range records {
		rec := &records[i]
		ix.keysLower[i] = strings.ToLower(rec.Key)
		ix.folderIDs[i] = FolderID(rec.FolderSegments())
		ix.byID[rec.AssetID] = i
	}
	return ix
}

// Empty returns an index with no records.
func Empty() *Index {
	return New(nil)
}

// Len returns the number of records.
func (ix *Index) Len() int {
	return len(ix.records)
}

// Records returns the underlying record slice. Callers must not
// mutate it.
func (ix *Index) Records() []models.AssetRecord {
	return ix.records
}

// Get resolves an asset by id.
func (ix *Index) Get(assetID string) (models.AssetRecord, bool) {
	i, ok := ix.byID[assetID]
	if !ok {
		return models.AssetRecord{}, false
	}
	return ix.records[i], true
}

// Search returns the total match count and the requested page, in
// index order. Tokens are split on whitespace; every token must appear
// in the lowercased key.
func (ix *Index) Search(filter SearchFilter) (int, []models.AssetRecord) {
	tokens := strings.Fields(strings.ToLower(filter.Query))

	folderID := filter.FolderNodeID
	if folderID == models.RootNodeID {
		folderID = ""
	}
	folderPrefix := folderID + "/"

	limit := filter.Limit
	if limit <= 0 {
		limit = len(ix.records)
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	total := 0
	var page []models.AssetRecord
	for i := range ix.records {
		rec := &ix.records[i]
		if folderID != "" &&
			ix.folderIDs[i] != folderID &&
			!strings.HasPrefix(ix.folderIDs[i], folderPrefix) {
			continue
		}
		if !filter.matchesKind(rec) {
			continue
		}
		if !matchesAll(ix.keysLower[i], tokens) {
			continue
		}

		if total >= offset && len(page) < limit {
			page = append(page, *rec)
		}
		total++
	}

	return total, page
}

func matchesAll(key string, tokens []string) bool {
	for _, token := range tokens {
		if !strings.Contains(key, token) {
			return false
		}
	}
	return true
}

// Children returns the child nodes of a virtual tree node. Folder
// children sort before files; both sort case-insensitively by name.
func (ix *Index) Children(nodeID string) ([]models.TreeNode, error) {
	ix.treeOnce.Do(ix.buildTree)

	if nodeID == "" {
		nodeID = models.RootNodeID
	}
	nodes, ok := ix.children[nodeID]
	if !ok {
		if strings.Contains(nodeID, "/file:") {
			return nil, nil // file leaves have no children
		}
		return nil, models.WrapError(models.ErrKindState,
			"tree node "+nodeID, models.ErrUnknownNode)
	}
	return nodes, nil
}

// FolderID derives the tree node id of a folder path.
func FolderID(segments []string) string {
	return "d:" + strings.Join(segments, "/")
}

// LeafID derives the tree node id of a file leaf under its folder.
func LeafID(parentID, assetID string) string {
	return parentID + "/file:" + assetID
}

func (ix *Index) buildTree() {
	children := map[string][]models.TreeNode{
		models.RootNodeID: nil,
	}
	seen := map[string]map[string]bool{} // parent id -> child id set

	addChild := func(parentID string, node models.TreeNode) {
		set, ok := seen[parentID]
		if !ok {
			set = make(map[string]bool)
			seen[parentID] = set
		}
		if set[node.ID] {
			return
		}
		set[node.ID] = true
		children[parentID] = append(children[parentID], node)
	}

	for _, rec := range ix.records {
		segments := rec.FolderSegments()

		parentID := models.RootNodeID
		for i, segment := range segments {
			folderID := FolderID(segments[:i+1])
			addChild(parentID, models.TreeNode{
				ID:          folderID,
				Name:        segment,
				NodeType:    models.NodeFolder,
				HasChildren: true,
			})
			if _, ok := children[folderID]; !ok {
				children[folderID] = nil
			}
			parentID = folderID
		}

		addChild(parentID, models.TreeNode{
			ID:       LeafID(parentID, rec.AssetID),
			Name:     rec.FileName(),
			NodeType: models.NodeFile,
			AssetID:  rec.AssetID,
		})
	}

	for id, nodes := range children {
		sort.SliceStable(nodes, func(i, j int) bool {
			if nodes[i].NodeType != nodes[j].NodeType {
				return nodes[i].NodeType == models.NodeFolder
			}
			a, b := strings.ToLower(nodes[i].Name), strings.ToLower(nodes[j].Name)
			if a != b {
				return a < b
			}
			return nodes[i].ID < nodes[j].ID
		})
		children[id] = nodes
	}

	ix.children = children
}

// AliasMap maps asset ids of the previous index to ids in the next one
// for assets whose structural identity survived a rescan under a new
// container path. Unchanged ids are omitted.
func AliasMap(prev, next *Index) map[string]string {
	if prev == nil || next == nil || prev.Len() == 0 || next.Len() == 0 {
		return nil
	}

	byIdentity := make(map[string]string, next.Len())
	for _, rec := range next.records {
		identity := rec.Identity()
		if _, exists := byIdentity[identity]; !exists {
			byIdentity[identity] = rec.AssetID
		}
	}

	aliases := make(map[string]string)
	for _, rec := range prev.records {
		newID, ok := byIdentity[rec.Identity()]
		if ok && newID != rec.AssetID {
			aliases[rec.AssetID] = newID
		}
	}
	return aliases
}
