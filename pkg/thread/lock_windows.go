//go:build windows

package thread

// DocumentLock is a no-op on windows.
type DocumentLock struct{}

func AcquireLock(path string) (*DocumentLock, error) { return &DocumentLock{}, nil }

func (l *DocumentLock) Release() error { return nil }
