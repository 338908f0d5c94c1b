package benchmark

import (
	"fmt"
	"testing"

	"github.com/craftscan/craftscan/internal/index"
	"github.com/craftscan/craftscan/internal/models"
)

// syntheticRecords builds a corpus shaped like a heavily modded
// instance: many mods, a few namespaces each, deep texture paths.
func syntheticRecords(n int) []models.AssetRecord {
	records := make([]models.AssetRecord, 0, n)
	for i := 0; i < n; i++ {
		mod := fmt.Sprintf("mod%03d.jar", i%50)
		namespace := fmt.Sprintf("ns%d", i%3)
		relPath := fmt.Sprintf("textures/block/group%d/stone_%d.png", i%10, i)
		containerPath := "/instances/bench/mods/" + mod
		entryPath := "assets/" + namespace + "/" + relPath

		records = append(records, models.AssetRecord{
			AssetID:           models.AssetID(containerPath, entryPath),
			Key:               models.AssetKey(mod, namespace, relPath),
			SourceType:        models.SourceMod,
			SourceName:        mod,
			Namespace:         namespace,
			RelativeAssetPath: relPath,
			Extension:         "png",
			IsImage:           true,
			ContainerPath:     containerPath,
			ContainerType:     models.ContainerJar,
			EntryPath:         entryPath,
		})
	}
	return records
}

func BenchmarkIndexBuild(b *testing.B) {
	for _, n := range []int{1000, 10000, 50000} {
		b.Run(fmt.Sprintf("%d_assets", n), func(b *testing.B) {
			records := syntheticRecords(n)

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				_ = index.New(records)
			}
		})
	}
}

func BenchmarkIndexSearch(b *testing.B) {
	ix := index.New(syntheticRecords(50000))

	b.Run("TokenQuery", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			ix.Search(index.SearchFilter{
				Query:         "stone png",
				IncludeImages: true,
				IncludeAudio:  true,
				IncludeOther:  true,
				Limit:         50,
			})
		}
	})

	b.Run("FolderScope", func(b *testing.B) {
		folderID := index.FolderID([]string{"mods", "mod001.jar", "ns1"})
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			ix.Search(index.SearchFilter{
				FolderNodeID:  folderID,
				IncludeImages: true,
				IncludeAudio:  true,
				IncludeOther:  true,
				Limit:         50,
			})
		}
	})

	b.Run("KindFilter", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			ix.Search(index.SearchFilter{IncludeImages: true, Limit: 50})
		}
	})
}

func BenchmarkIndexChildren(b *testing.B) {
	ix := index.New(syntheticRecords(50000))
	nodeID := index.FolderID([]string{"mods", "mod001.jar", "ns1", "textures", "block"})

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := ix.Children(nodeID); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAliasMap(b *testing.B) {
	prev := index.New(syntheticRecords(10000))

	// Same structural identities behind moved container paths.
	moved := syntheticRecords(10000)
	for i := range moved {
		moved[i].ContainerPath = "/instances/bench-renamed/mods/" + moved[i].SourceName
		moved[i].AssetID = models.AssetID(moved[i].ContainerPath, moved[i].EntryPath)
	}
	next := index.New(moved)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = index.AliasMap(prev, next)
	}
}
