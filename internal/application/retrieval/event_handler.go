package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/webforge/backend/internal/domain/events"
)

// indexTimeout 单个文件事件的处理时限
const indexTimeout = 30 * time.Second

// HandleEvent 实现 events.Handler，文件写入时重新索引，删除时移除
func (i *CodeIndex) HandleEvent(event events.Event) error {
	fileEvent, ok := event.(*events.ProjectFileEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}
	if !i.Available() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
	defer cancel()

	switch fileEvent.EventType {
	case events.ProjectFileDeleted:
		return i.RemoveFile(ctx, fileEvent.FilePath)
	default:
		return i.IndexFile(ctx, fileEvent.ProjectName, fileEvent.FilePath)
	}
}
