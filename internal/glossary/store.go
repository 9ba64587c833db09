package glossary

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Store holds the current glossary for a file and swaps it atomically on
// reload. Readers always see a complete map.
type Store struct {
	path    string
	current atomic.Pointer[Map]

	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
}

// NewStore loads path once. A missing file yields an empty glossary; a
// malformed one is reported and the store starts empty.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}
	empty := Map{}
	s.current.Store(&empty)
	if err := s.Reload(); err != nil {
		return s, err
	}
	return s, nil
}

func (s *Store) Path() string { return s.path }

// Current returns the map in effect right now.
func (s *Store) Current() Map {
	return *s.current.Load()
}

// Reload re-reads the file. On error the previous map stays in effect.
func (s *Store) Reload() error {
	m, err := Load(s.path)
	if err != nil {
		log.Printf("Glossary: failed to load %s: %v", s.path, err)
		return err
	}
	s.current.Store(&m)
	log.Printf("Glossary: loaded %d entries from %s", m.Len(), s.path)
	return nil
}

// Watch reloads the glossary whenever its file is written or recreated until
// ctx is done or Stop is called.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return err
	}
	s.watcher = watcher

	s.wg.Add(1)
	go s.watchLoop(ctx)

	log.Printf("Glossary: watching %s for changes", s.path)
	return nil
}

func (s *Store) Stop() {
	if s.watcher != nil {
		s.watcher.Close()
	}
	s.wg.Wait()
}

func (s *Store) watchLoop(ctx context.Context) {
	defer s.wg.Done()
	name := filepath.Base(s.path)

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			switch {
			case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
				_ = s.Reload()
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				empty := Map{}
				s.current.Store(&empty)
				log.Printf("Glossary: %s removed, using empty glossary", s.path)
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Glossary watcher error: %v", err)

		case <-ctx.Done():
			return
		}
	}
}
