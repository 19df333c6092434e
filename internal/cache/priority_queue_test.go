package cache

import "testing"

func TestPriorityQueue_PopsHighestPriorityFirst(t *testing.T) {
	pq := NewPriorityQueue()

	pq.Push(WarmupJob{Key: "tasks:list:default", Priority: 1})
	pq.Push(WarmupJob{Key: "tasks:summary", Priority: 5})
	pq.Push(WarmupJob{Key: "tasks:list:completed", Priority: 3})

	expected := []string{"tasks:summary", "tasks:list:completed", "tasks:list:default"}
	for _, want := range expected {
		job, ok := pq.Pop()
		if !ok {
			t.Fatal("Expected a job, queue was empty")
		}
		if job.Key != want {
			t.Errorf("Expected %s, got %s", want, job.Key)
		}
	}
}

func TestPriorityQueue_PopEmpty(t *testing.T) {
	pq := NewPriorityQueue()

	if _, ok := pq.Pop(); ok {
		t.Error("Expected no job from an empty queue")
	}
}

func TestPriorityQueue_PeekDoesNotDrain(t *testing.T) {
	pq := NewPriorityQueue()
	pq.Push(WarmupJob{Key: "tasks:summary", Priority: 2})

	job, ok := pq.Peek()
	if !ok {
		t.Fatal("Expected a job")
	}
	if job.Key != "tasks:summary" {
		t.Errorf("Expected tasks:summary, got %s", job.Key)
	}

	if pq.Len() != 1 {
		t.Errorf("Expected queue to still hold 1 job, got %d", pq.Len())
	}
}

func TestPriorityQueue_ClearAndEmpty(t *testing.T) {
	pq := NewPriorityQueue()

	if !pq.Empty() {
		t.Error("Expected new queue to be empty")
	}

	pq.Push(WarmupJob{Key: "tasks:summary", Priority: 1})
	pq.Push(WarmupJob{Key: "tasks:list:default", Priority: 2})

	if pq.Empty() {
		t.Error("Expected queue to be non-empty")
	}

	pq.Clear()

	if !pq.Empty() {
		t.Error("Expected queue to be empty after Clear")
	}
}

func TestPriorityQueue_GetJobsSnapshot(t *testing.T) {
	pq := NewPriorityQueue()
	pq.Push(WarmupJob{Key: "tasks:summary", Priority: 1})
	pq.Push(WarmupJob{Key: "tasks:list:default", Priority: 2})

	jobs := pq.GetJobs()
	if len(jobs) != 2 {
		t.Errorf("Expected snapshot of 2 jobs, got %d", len(jobs))
	}

	if pq.Len() != 2 {
		t.Errorf("Expected snapshot to leave the queue intact, got %d", pq.Len())
	}
}
