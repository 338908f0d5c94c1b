package launcher

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/craftscan/craftscan/internal/events"
	"github.com/craftscan/craftscan/internal/models"
)

// Discovery resolves the containers of one instance. The container
// list order is stable: vanilla first (asset index, then client jar),
// then mods and resource packs sorted by name.
type Discovery struct {
	root   string
	logger *events.Logger
}

// NewDiscovery creates a discovery for a launcher root.
func NewDiscovery(root string, logger *events.Logger) *Discovery {
	return &Discovery{
		root:   root,
		logger: logger.WithField("component", "discovery"),
	}
}

// Containers lists the scannable containers of an instance for the
// enabled source families.
func (d *Discovery) Containers(instanceID string, toggles models.SourceToggles) ([]models.Container, error) {
	instance, err := FindInstance(d.root, instanceID)
	if err != nil {
		return nil, err
	}

	var containers []models.Container

	if toggles.IncludeVanilla {
		containers = append(containers, d.vanillaContainers(instance)...)
	}
	if toggles.IncludeMods {
		containers = append(containers, d.modContainers(instance)...)
	}
	if toggles.IncludeResourcepacks {
		containers = append(containers, d.resourcePackContainers(instance)...)
	}

	d.logger.WithFields(map[string]interface{}{
		"instance":   instanceID,
		"containers": len(containers),
		"sources":    toggles.Normalized(),
	}).Debug("Discovered containers")

	return containers, nil
}

// vanillaContainers resolves the asset index and client jar for the
// instance's Minecraft version. Missing pieces are skipped; a vanilla
// install is not required to scan mods or packs.
func (d *Discovery) vanillaContainers(instance Instance) []models.Container {
	var containers []models.Container
	version := instance.MinecraftVersion

	indexID := d.assetIndexID(version)
	indexPath := filepath.Join(d.root, "assets", "indexes", indexID+".json")
	if fileExists(indexPath) {
		containers = append(containers, models.Container{
			Path:       indexPath,
			Type:       models.ContainerAssetIndex,
			SourceType: models.SourceVanilla,
			SourceName: "minecraft",
		})
	} else {
		d.logger.WithField("path", indexPath).Debug("Asset index not present")
	}

	jarPath := filepath.Join(d.root, "libraries", "com", "mojang", "minecraft",
		version, fmt.Sprintf("minecraft-%s-client.jar", version))
	if fileExists(jarPath) {
		containers = append(containers, models.Container{
			Path:       jarPath,
			Type:       models.ContainerJar,
			SourceType: models.SourceVanilla,
			SourceName: "minecraft",
		})
	} else {
		d.logger.WithField("path", jarPath).Debug("Client jar not present")
	}

	return containers
}

// assetIndexID reads assetIndex.id from the version meta, falling back
// to the legacy "assets" index.
func (d *Discovery) assetIndexID(version string) string {
	metaPath := filepath.Join(d.root, "meta", "net.minecraft", version+".json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return "assets"
	}

	var meta struct {
		AssetIndex struct {
			ID string `json:"id"`
		} `json:"assetIndex"`
	}
	if err := json.Unmarshal(data, &meta); err != nil || meta.AssetIndex.ID == "" {
		return "assets"
	}
	return meta.AssetIndex.ID
}

// modContainers lists mod archives, non-recursively. Files suffixed
// .disabled are excluded.
func (d *Discovery) modContainers(instance Instance) []models.Container {
	modsDir := filepath.Join(d.minecraftDir(instance), "mods")
	entries, err := os.ReadDir(modsDir)
	if err != nil {
		return nil
	}

	names := lo.FilterMap(entries, func(entry os.DirEntry, _ int) (string, bool) {
		if entry.IsDir() {
			return "", false
		}
		name := entry.Name()
		lower := strings.ToLower(name)
		if strings.HasSuffix(lower, ".disabled") {
			return "", false
		}
		if !strings.HasSuffix(lower, ".jar") && !strings.HasSuffix(lower, ".zip") {
			return "", false
		}
		return name, true
	})
	sort.Strings(names)

	return lo.Map(names, func(name string, _ int) models.Container {
		containerType := models.ContainerJar
		if strings.HasSuffix(strings.ToLower(name), ".zip") {
			containerType = models.ContainerZip
		}
		return models.Container{
			Path:       filepath.Join(modsDir, name),
			Type:       containerType,
			SourceType: models.SourceMod,
			SourceName: name,
		}
	})
}

// resourcePackContainers lists resource packs: zip archives, and
// directories carrying an assets/ tree or a pack.mcmeta.
func (d *Discovery) resourcePackContainers(instance Instance) []models.Container {
	packsDir := filepath.Join(d.minecraftDir(instance), "resourcepacks")
	entries, err := os.ReadDir(packsDir)
	if err != nil {
		return nil
	}

	containers := lo.FilterMap(entries, func(entry os.DirEntry, _ int) (models.Container, bool) {
		name := entry.Name()
		path := filepath.Join(packsDir, name)

		if entry.IsDir() {
			if !dirExists(filepath.Join(path, "assets")) && !fileExists(filepath.Join(path, "pack.mcmeta")) {
				d.logger.WithField("path", path).Warn("Skipping directory without assets/ or pack.mcmeta")
				return models.Container{}, false
			}
			return models.Container{
				Path:       path,
				Type:       models.ContainerDirectory,
				SourceType: models.SourceResourcePack,
				SourceName: name,
			}, true
		}

		if !strings.HasSuffix(strings.ToLower(name), ".zip") {
			d.logger.WithField("path", path).Warn("Skipping non-zip resource pack file")
			return models.Container{}, false
		}
		return models.Container{
			Path:       path,
			Type:       models.ContainerZip,
			SourceType: models.SourceResourcePack,
			SourceName: name,
		}, true
	})

	sort.Slice(containers, func(i, j int) bool {
		return containers[i].SourceName < containers[j].SourceName
	})
	return containers
}

// minecraftDir returns the game directory of an instance. Prism uses
// .minecraft; some older layouts use minecraft without the dot.
func (d *Discovery) minecraftDir(instance Instance) string {
	dotted := filepath.Join(instance.Path, ".minecraft")
	if dirExists(dotted) {
		return dotted
	}
	return filepath.Join(instance.Path, "minecraft")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
