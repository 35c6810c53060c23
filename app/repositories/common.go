package repositories

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"textsubmission/app/models"

	"github.com/dgraph-io/badger/v4"
)

const (
	// Key prefix for submission records
	SubmissionKeyPrefix = "submission:"

	// Sequence key for auto-incrementing IDs
	SubmissionSeqKey = "seq:submission"
)

func submissionKey(id int) []byte {
	return []byte(fmt.Sprintf("%s%d", SubmissionKeyPrefix, id))
}

// getNextID gets the next available ID for a given sequence key
func getNextID(txn *badger.Txn, seqKey string) (int, error) {
	current, err := currentID(txn, seqKey)
	if err != nil {
		return 0, err
	}
	id := current + 1
	if err := setID(txn, seqKey, id); err != nil {
		return 0, err
	}
	return id, nil
}

// currentID returns the last ID handed out, zero if none.
func currentID(txn *badger.Txn, seqKey string) (int, error) {
	item, err := txn.Get([]byte(seqKey))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var id int
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("corrupt sequence value for %s", seqKey)
		}
		id = int(binary.BigEndian.Uint64(val))
		return nil
	})
	return id, err
}

func setID(txn *badger.Txn, seqKey string, id int) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return txn.Set([]byte(seqKey), buf)
}

// checkReplaceable rejects rows that cannot keep their ID in a restored store.
func checkReplaceable(submissions []*models.Submission) error {
	seen := make(map[int]struct{}, len(submissions))
	for _, submission := range submissions {
		if submission.ID <= 0 {
			return fmt.Errorf("cannot restore submission without id")
		}
		if _, dup := seen[submission.ID]; dup {
			return fmt.Errorf("duplicate submission id %d", submission.ID)
		}
		seen[submission.ID] = struct{}{}
	}
	return nil
}

// marshalEntity marshals an entity to JSON
func marshalEntity(entity interface{}) ([]byte, error) {
	data, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity: %w", err)
	}
	return data, nil
}

// unmarshalEntity unmarshals JSON data into an entity
func unmarshalEntity(data []byte, entity interface{}) error {
	if err := json.Unmarshal(data, entity); err != nil {
		return fmt.Errorf("failed to unmarshal entity: %w", err)
	}
	return nil
}

// sortNewestFirst orders submissions by CreatedAt descending, then ID descending.
func sortNewestFirst(submissions []*models.Submission) {
	sort.SliceStable(submissions, func(i, j int) bool {
		return models.Less(submissions[i], submissions[j])
	})
}
