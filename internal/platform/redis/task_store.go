package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mbarlow/lectern-api/internal/domain"
	"github.com/mbarlow/lectern-api/internal/store"
)

// Key layout. The task ID already embeds the owning user, so the hash key
// alone is enough to locate and authorize a record.
const (
	taskKeyPrefix      = "task:"
	userActivePrefix   = "user:"
	userActiveSuffix   = ":active_tasks"
	userHistoryPrefix  = "user:"
	userHistorySuffix  = ":completed_tasks"
	globalActiveKey    = "global:active_tasks"
)

// timeLayout is the wire format for timestamps stored in task hashes.
const timeLayout = time.RFC3339Nano

// admitScript atomically checks both ceilings and, when both hold, writes
// the record and registers it in the active sets. Denials perform no writes.
var admitScript = redis.NewScript(`
if redis.call('SCARD', KEYS[2]) >= tonumber(ARGV[2]) then
  return 'user_limit'
end
if redis.call('SCARD', KEYS[3]) >= tonumber(ARGV[3]) then
  return 'global_limit'
end
for i = 5, #ARGV, 2 do
  redis.call('HSET', KEYS[1], ARGV[i], ARGV[i+1])
end
redis.call('SADD', KEYS[2], ARGV[1])
redis.call('SADD', KEYS[3], ARGV[1])
if tonumber(ARGV[4]) > 0 then
  redis.call('EXPIRE', KEYS[1], ARGV[4])
end
return 'ok'
`)

// releaseScript undoes an admission that never started executing.
var releaseScript = redis.NewScript(`
redis.call('DEL', KEYS[1])
redis.call('SREM', KEYS[2], ARGV[1])
redis.call('SREM', KEYS[3], ARGV[1])
return 'ok'
`)

// advanceScript moves an active task forward one stage milestone. The
// execution unit is the sole caller, so stage/progress monotonicity follows
// from its call order; the script's job is the status and cancellation
// guards.
var advanceScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 'not_found'
end
local status = redis.call('HGET', KEYS[1], 'status')
if status ~= 'pending' and status ~= 'processing' then
  return 'not_active'
end
if redis.call('HGET', KEYS[1], 'cancel_requested') == '1' then
  return 'cancel_requested'
end
redis.call('HSET', KEYS[1],
  'status', 'processing',
  'stage', ARGV[1],
  'progress', ARGV[2],
  'updated_at', ARGV[3])
return 'ok'
`)

// requestCancelScript sets the cooperative cancellation flag. It never
// touches status or updated_at; the terminal transition belongs to the
// canceller's compare-and-set.
var requestCancelScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 'not_found'
end
redis.call('HSET', KEYS[1], 'cancel_requested', '1')
return 'ok'
`)

// terminalScript is the compare-and-set terminal write: the first writer to
// flip status from non-terminal wins; later writers see 'already_terminal'
// and must take no further action. Membership removal and history recording
// happen in the same script, so active-set membership holds exactly while
// the status is non-terminal.
var terminalScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 'not_found'
end
local status = redis.call('HGET', KEYS[1], 'status')
if status == 'completed' or status == 'failed' or status == 'cancelled' then
  return 'already_terminal'
end
redis.call('HSET', KEYS[1], 'status', ARGV[2], 'updated_at', ARGV[7])
if ARGV[3] ~= '' then
  redis.call('HSET', KEYS[1], 'stage', ARGV[3])
end
if ARGV[4] ~= '' then
  redis.call('HSET', KEYS[1], 'progress', ARGV[4])
end
if ARGV[5] ~= '' then
  redis.call('HSET', KEYS[1], 'result', ARGV[5])
end
if ARGV[6] ~= '' then
  redis.call('HSET', KEYS[1], 'error_message', ARGV[6])
end
redis.call('SREM', KEYS[2], ARGV[1])
redis.call('SREM', KEYS[3], ARGV[1])
redis.call('LPUSH', KEYS[4], ARGV[1])
redis.call('LTRIM', KEYS[4], 0, tonumber(ARGV[8]) - 1)
return 'ok'
`)

// TaskStore implements store.TaskStore on Redis.
type TaskStore struct {
	client *redis.Client

	// recordTTL is applied to task hashes on creation; zero disables expiry.
	recordTTL time.Duration

	// historyLimit caps each user's completed-task list.
	historyLimit int
}

// Options configures a TaskStore.
type Options struct {
	RecordTTL    time.Duration
	HistoryLimit int
}

// NewTaskStore creates a TaskStore on the given client.
func NewTaskStore(client *redis.Client, opts Options) *TaskStore {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 100
	}
	return &TaskStore{
		client:       client,
		recordTTL:    opts.RecordTTL,
		historyLimit: opts.HistoryLimit,
	}
}

func taskKey(taskID string) string {
	return taskKeyPrefix + taskID
}

func userActiveKey(userID string) string {
	return userActivePrefix + userID + userActiveSuffix
}

func userHistoryKey(userID string) string {
	return userHistoryPrefix + userID + userHistorySuffix
}

// Admit implements store.TaskStore.
func (s *TaskStore) Admit(ctx context.Context, rec *domain.TaskRecord, userLimit, globalLimit int) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("refusing to admit invalid record: %w", err)
	}

	inputs, err := json.Marshal(rec.Inputs)
	if err != nil {
		return fmt.Errorf("failed to encode input handles: %w", err)
	}

	args := []interface{}{
		rec.TaskID,
		userLimit,
		globalLimit,
		int(s.recordTTL.Seconds()),
		"user_id", rec.UserID,
		"kind", string(rec.Kind),
		"status", string(rec.Status),
		"stage", string(rec.Stage),
		"progress", strconv.Itoa(rec.Progress),
		"created_at", rec.CreatedAt.UTC().Format(timeLayout),
		"updated_at", rec.UpdatedAt.UTC().Format(timeLayout),
		"inputs", string(inputs),
		"cancel_requested", "0",
	}

	keys := []string{taskKey(rec.TaskID), userActiveKey(rec.UserID), globalActiveKey}
	res, err := admitScript.Run(ctx, s.client, keys, args...).Text()
	if err != nil {
		return fmt.Errorf("admission script failed: %w", err)
	}

	switch res {
	case "ok":
		return nil
	case "user_limit":
		return store.ErrUserLimitExceeded
	case "global_limit":
		return store.ErrGlobalLimitExceeded
	default:
		return fmt.Errorf("admission script returned unexpected result %q", res)
	}
}

// Release implements store.TaskStore.
func (s *TaskStore) Release(ctx context.Context, taskID string) error {
	userID, err := domain.TaskOwner(taskID)
	if err != nil {
		return err
	}
	keys := []string{taskKey(taskID), userActiveKey(userID), globalActiveKey}
	if err := releaseScript.Run(ctx, s.client, keys, taskID).Err(); err != nil {
		return fmt.Errorf("release script failed: %w", err)
	}
	return nil
}

// Get implements store.TaskStore.
func (s *TaskStore) Get(ctx context.Context, taskID string) (*domain.TaskRecord, error) {
	fields, err := s.client.HGetAll(ctx, taskKey(taskID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read task hash: %w", err)
	}
	if len(fields) == 0 {
		return nil, store.ErrTaskNotFound
	}
	return recordFromFields(taskID, fields)
}

// AdvanceStage implements store.TaskStore.
func (s *TaskStore) AdvanceStage(ctx context.Context, taskID string, stage domain.TaskStage, progress int) error {
	if !stage.IsValid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidStage, stage)
	}
	if progress < 0 || progress > 100 {
		return fmt.Errorf("%w: %d", domain.ErrInvalidProgress, progress)
	}

	now := time.Now().UTC().Format(timeLayout)
	res, err := advanceScript.Run(ctx, s.client,
		[]string{taskKey(taskID)},
		string(stage), strconv.Itoa(progress), now,
	).Text()
	if err != nil {
		return fmt.Errorf("advance script failed: %w", err)
	}

	switch res {
	case "ok":
		return nil
	case "not_found":
		return store.ErrTaskNotFound
	case "not_active":
		return store.ErrNotActive
	case "cancel_requested":
		return store.ErrCancelRequested
	default:
		return fmt.Errorf("advance script returned unexpected result %q", res)
	}
}

// RequestCancel implements store.TaskStore.
func (s *TaskStore) RequestCancel(ctx context.Context, taskID string) error {
	res, err := requestCancelScript.Run(ctx, s.client, []string{taskKey(taskID)}).Text()
	if err != nil {
		return fmt.Errorf("request-cancel script failed: %w", err)
	}
	if res == "not_found" {
		return store.ErrTaskNotFound
	}
	return nil
}

// Complete implements store.TaskStore.
func (s *TaskStore) Complete(ctx context.Context, taskID string, result []byte) error {
	return s.terminal(ctx, taskID, domain.TaskStatusCompleted,
		string(domain.TaskStageCompleted), "100", string(result), "")
}

// Fail implements store.TaskStore.
func (s *TaskStore) Fail(ctx context.Context, taskID string, errorMessage string) error {
	return s.terminal(ctx, taskID, domain.TaskStatusFailed, "", "", "", errorMessage)
}

// Cancel implements store.TaskStore.
func (s *TaskStore) Cancel(ctx context.Context, taskID string) error {
	return s.terminal(ctx, taskID, domain.TaskStatusCancelled, "", "", "", "")
}

func (s *TaskStore) terminal(ctx context.Context, taskID string, status domain.TaskStatus, stage, progress, result, errorMessage string) error {
	userID, err := domain.TaskOwner(taskID)
	if err != nil {
		return err
	}

	keys := []string{
		taskKey(taskID),
		userActiveKey(userID),
		globalActiveKey,
		userHistoryKey(userID),
	}
	now := time.Now().UTC().Format(timeLayout)
	res, err := terminalScript.Run(ctx, s.client, keys,
		taskID, string(status), stage, progress, result, errorMessage, now, s.historyLimit,
	).Text()
	if err != nil {
		return fmt.Errorf("terminal script failed: %w", err)
	}

	switch res {
	case "ok":
		return nil
	case "not_found":
		return store.ErrTaskNotFound
	case "already_terminal":
		return store.ErrAlreadyTerminal
	default:
		return fmt.Errorf("terminal script returned unexpected result %q", res)
	}
}

// ListActive implements store.TaskStore.
func (s *TaskStore) ListActive(ctx context.Context, userID string) ([]*domain.TaskRecord, error) {
	ids, err := s.client.SMembers(ctx, userActiveKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read active set: %w", err)
	}

	records, err := s.fetch(ctx, ids)
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

// ListCompleted implements store.TaskStore.
func (s *TaskStore) ListCompleted(ctx context.Context, userID string, limit int) ([]*domain.TaskRecord, error) {
	if limit <= 0 {
		limit = s.historyLimit
	}
	ids, err := s.client.LRange(ctx, userHistoryKey(userID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history list: %w", err)
	}
	// History is LPUSH-ordered, newest first already.
	return s.fetch(ctx, ids)
}

// ListStaleProcessing implements store.TaskStore.
func (s *TaskStore) ListStaleProcessing(ctx context.Context, olderThan time.Duration) ([]*domain.TaskRecord, error) {
	ids, err := s.client.SMembers(ctx, globalActiveKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read global active set: %w", err)
	}

	records, err := s.fetch(ctx, ids)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().UTC().Add(-olderThan)
	stale := make([]*domain.TaskRecord, 0)
	for _, rec := range records {
		if rec.Status == domain.TaskStatusProcessing && rec.UpdatedAt.Before(cutoff) {
			stale = append(stale, rec)
		}
	}
	return stale, nil
}

// fetch loads the records for the given IDs in one pipelined round trip,
// skipping records that have expired out from under their set or list
// membership.
func (s *TaskStore) fetch(ctx context.Context, ids []string) ([]*domain.TaskRecord, error) {
	if len(ids) == 0 {
		return []*domain.TaskRecord{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, taskKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to read task hashes: %w", err)
	}

	records := make([]*domain.TaskRecord, 0, len(ids))
	for i, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read task hash: %w", err)
		}
		if len(fields) == 0 {
			continue
		}
		rec, err := recordFromFields(ids[i], fields)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// recordFromFields decodes a task hash into a TaskRecord.
func recordFromFields(taskID string, fields map[string]string) (*domain.TaskRecord, error) {
	rec := &domain.TaskRecord{
		TaskID:          taskID,
		UserID:          fields["user_id"],
		Kind:            domain.TaskKind(fields["kind"]),
		Status:          domain.TaskStatus(fields["status"]),
		Stage:           domain.TaskStage(fields["stage"]),
		ErrorMessage:    fields["error_message"],
		CancelRequested: fields["cancel_requested"] == "1",
	}

	if v := fields["progress"]; v != "" {
		progress, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("malformed progress %q for task %s: %w", v, taskID, err)
		}
		rec.Progress = progress
	}

	createdAt, err := time.Parse(timeLayout, fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("malformed created_at for task %s: %w", taskID, err)
	}
	rec.CreatedAt = createdAt

	updatedAt, err := time.Parse(timeLayout, fields["updated_at"])
	if err != nil {
		return nil, fmt.Errorf("malformed updated_at for task %s: %w", taskID, err)
	}
	rec.UpdatedAt = updatedAt

	if v := fields["result"]; v != "" {
		rec.Result = []byte(v)
	}
	if v := fields["inputs"]; v != "" {
		if err := json.Unmarshal([]byte(v), &rec.Inputs); err != nil {
			return nil, fmt.Errorf("malformed input handles for task %s: %w", taskID, err)
		}
	}

	return rec, nil
}
