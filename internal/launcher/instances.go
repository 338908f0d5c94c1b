package launcher

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/craftscan/craftscan/internal/models"
)

// Instance is one launcher instance.
type Instance struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	MinecraftVersion string `json:"minecraftVersion"`
	Path             string `json:"path"`
}

// mmcPack is the subset of mmc-pack.json we need.
type mmcPack struct {
	Components []struct {
		UID     string `json:"uid"`
		Version string `json:"version"`
	} `json:"components"`
}

// ListInstances enumerates the instances of a launcher root, sorted by
// display name. Directories without an mmc-pack.json are skipped.
func ListInstances(root string) ([]Instance, error) {
	instancesDir := filepath.Join(root, "instances")
	entries, err := os.ReadDir(instancesDir)
	if err != nil {
		return nil, models.WrapError(models.ErrKindDiscovery, "read instances directory", err)
	}

	var instances []Instance
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		instDir := filepath.Join(instancesDir, entry.Name())
		version, ok := minecraftVersion(filepath.Join(instDir, "mmc-pack.json"))
		if !ok {
			continue
		}

		name := instanceDisplayName(filepath.Join(instDir, "instance.cfg"))
		if name == "" {
			name = entry.Name()
		}

		instances = append(instances, Instance{
			ID:               entry.Name(),
			Name:             name,
			MinecraftVersion: version,
			Path:             instDir,
		})
	}

	sort.Slice(instances, func(i, j int) bool {
		a, b := strings.ToLower(instances[i].Name), strings.ToLower(instances[j].Name)
		if a != b {
			return a < b
		}
		return instances[i].ID < instances[j].ID
	})

	return instances, nil
}

// FindInstance resolves one instance by id.
func FindInstance(root, instanceID string) (Instance, error) {
	instances, err := ListInstances(root)
	if err != nil {
		return Instance{}, err
	}
	for _, inst := range instances {
		if inst.ID == instanceID {
			return inst, nil
		}
	}
	return Instance{}, models.WrapError(models.ErrKindConfig,
		"instance "+instanceID, models.ErrInstanceNotFound)
}

// minecraftVersion extracts the net.minecraft component version.
func minecraftVersion(packPath string) (string, bool) {
	data, err := os.ReadFile(packPath)
	if err != nil {
		return "", false
	}

	var pack mmcPack
	if err := json.Unmarshal(data, &pack); err != nil {
		return "", false
	}

	for _, component := range pack.Components {
		if component.UID == "net.minecraft" && component.Version != "" {
			return component.Version, true
		}
	}
	return "", false
}

// instanceDisplayName reads name= from the [General] section of
// instance.cfg. Older configs keep keys at the top level, so a bare
// name= line counts too.
func instanceDisplayName(cfgPath string) string {
	file, err := os.Open(cfgPath)
	if err != nil {
		return ""
	}
	defer file.Close()

	inGeneral := true
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			inGeneral = strings.EqualFold(line, "[General]")
			continue
		}
		if !inGeneral {
			continue
		}
		if key, value, found := strings.Cut(line, "="); found && strings.TrimSpace(key) == "name" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
