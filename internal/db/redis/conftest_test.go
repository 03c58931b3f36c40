package redis

import (
	"testing"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"
)

func storeWith(c rueidis.Client) *Store { return &Store{client: c} }

func newMockStore(t *testing.T) (*Store, *mock.Client) {
	t.Helper()
	c := mock.NewClient(gomock.NewController(t))
	return storeWith(c), c
}

// firstArg matches any command whose name is cmd.
func firstArg(cmd string) gomock.Matcher {
	return mock.MatchFn(func(args []string) bool { return len(args) > 0 && args[0] == cmd }, cmd)
}
