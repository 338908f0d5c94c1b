package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
)

// SourceType identifies the container family an asset was found in.
type SourceType string

const (
	SourceVanilla      SourceType = "vanilla"
	SourceMod          SourceType = "mod"
	SourceResourcePack SourceType = "resourcePack"
)

// TreeRootName returns the virtual tree segment for a source family.
func (s SourceType) TreeRootName() string {
	switch s {
	case SourceVanilla:
		return "vanilla"
	case SourceMod:
		return "mods"
	case SourceResourcePack:
		return "resourcepacks"
	default:
		return string(s)
	}
}

// ContainerType identifies the physical form of a scan container.
type ContainerType string

const (
	ContainerDirectory  ContainerType = "directory"
	ContainerZip        ContainerType = "zip"
	ContainerJar        ContainerType = "jar"
	ContainerAssetIndex ContainerType = "assetIndex"
)

// Container is one scannable unit produced by discovery. Containers are
// immutable for the life of a scan.
type Container struct {
	Path       string        `json:"containerPath"`
	Type       ContainerType `json:"containerType"`
	SourceType SourceType    `json:"sourceType"`
	SourceName string        `json:"sourceName"`
}

// Key uniquely identifies a container across scans of the same instance.
func (c Container) Key() string {
	return fmt.Sprintf("%s::%s::%s::%s", c.SourceType, c.SourceName, c.Type, c.Path)
}

// AssetRecord is one indexed file inside a container.
type AssetRecord struct {
	AssetID           string        `json:"assetId"`
	Key               string        `json:"key"`
	SourceType        SourceType    `json:"sourceType"`
	SourceName        string        `json:"sourceName"`
	Namespace         string        `json:"namespace"`
	RelativeAssetPath string        `json:"relativeAssetPath"`
	Extension         string        `json:"extension"`
	IsImage           bool          `json:"isImage"`
	IsAudio           bool          `json:"isAudio"`
	ContainerPath     string        `json:"containerPath"`
	ContainerType     ContainerType `json:"containerType"`
	EntryPath         string        `json:"entryPath"`
}

// AssetID derives the stable 128-bit identifier for an entry inside a
// container. It is deterministic across reruns on unchanged containers.
func AssetID(containerPath, entryPath string) string {
	sum := sha256.Sum256([]byte(containerPath + "\x00" + entryPath))
	return hex.EncodeToString(sum[:16])
}

// AssetKey builds the human search key for a record.
func AssetKey(sourceName, namespace, relativeAssetPath string) string {
	return fmt.Sprintf("%s / %s / %s", sourceName, namespace, relativeAssetPath)
}

// FileName returns the final path segment of the asset.
func (a *AssetRecord) FileName() string {
	name := path.Base(a.RelativeAssetPath)
	if name == "." || name == "/" || name == "" {
		return a.RelativeAssetPath
	}
	return name
}

// FolderSegments lists the virtual folder path of the asset, root first:
// source family, source name, namespace, then the directories of the
// relative asset path.
func (a *AssetRecord) FolderSegments() []string {
	segments := []string{
		a.SourceType.TreeRootName(),
		a.SourceName,
		a.Namespace,
	}

	dir := path.Dir(a.RelativeAssetPath)
	if dir != "." && dir != "/" {
		for _, segment := range strings.Split(dir, "/") {
			if segment != "" {
				segments = append(segments, segment)
			}
		}
	}

	return segments
}

// Identity is the structural identity used to reconcile asset ids across
// rescans when container paths change.
func (a *AssetRecord) Identity() string {
	return strings.Join([]string{
		a.SourceName,
		a.Namespace,
		a.RelativeAssetPath,
		a.Extension,
	}, "\x00")
}
