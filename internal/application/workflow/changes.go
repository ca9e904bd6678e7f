package workflow

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	domain "github.com/webforge/backend/internal/domain/workflow"
)

// lineChanges 按行统计新增和删除
func lineChanges(before, after string) (insertions, deletions int) {
	if before == after {
		return 0, 0
	}
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	for _, d := range diffs {
		n := countLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			insertions += n
		case diffmatchpatch.DiffDelete:
			deletions += n
		}
	}
	return insertions, deletions
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}

// artifactChanges 比较运行前后写入磁盘的三个文件
func artifactChanges(before, after map[string]string) []domain.ArtifactChange {
	changes := make([]domain.ArtifactChange, 0, len(domain.ArtifactFiles))
	for _, file := range domain.ArtifactFiles {
		ins, del := lineChanges(before[file], after[file])
		changes = append(changes, domain.ArtifactChange{
			File:       file,
			Insertions: ins,
			Deletions:  del,
		})
	}
	return changes
}
