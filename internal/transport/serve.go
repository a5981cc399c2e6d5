package transport

import (
	"context"
	"hash/fnv"
	"sync"
)

// Serve читает события из events и передаёт их h на workers горутинах.
// События одного пользователя всегда попадают в одну горутину и обрабатываются
// в порядке поступления. Возвращается, когда events закрыт или ctx отменён,
// дождавшись обработки уже распределённых событий.
func Serve(ctx context.Context, events <-chan Event, h Handler, workers int) {
	if workers <= 0 {
		workers = 1
	}

	queues := make([]chan Event, workers)
	var wg sync.WaitGroup
	for i := range queues {
		queues[i] = make(chan Event, 16)
		wg.Add(1)
		go func(q <-chan Event) {
			defer wg.Done()
			for ev := range q {
				h.Handle(ctx, ev)
			}
		}(queues[i])
	}

	defer func() {
		for _, q := range queues {
			close(q)
		}
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			select {
			case queues[shard(ev.UserID, workers)] <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

func shard(userID string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(n))
}
