package sink

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func TestWidget(t *testing.T) {
	t.Run("RendersAndClears", func(t *testing.T) {
		w := NewWidget(testLogger())

		w.UpdateNowPlaying(NowPlaying{Title: "Song", Artist: "Artist", IsPlaying: true})
		np, active := w.Current()
		if !active || np.Title != "Song" || !np.IsPlaying {
			t.Errorf("Expected rendered payload, got %+v active=%v", np, active)
		}

		w.SetIdle()
		if _, active := w.Current(); active {
			t.Error("Expected idle widget after SetIdle")
		}
	})

	t.Run("PressDelivers", func(t *testing.T) {
		w := NewWidget(testLogger())

		w.Press(CommandSkipNext)
		select {
		case cmd := <-w.Commands():
			if cmd != CommandSkipNext {
				t.Errorf("Expected skip next, got %v", cmd)
			}
		default:
			t.Fatal("Expected a buffered command")
		}
	})

	t.Run("PressDropsWhenFull", func(t *testing.T) {
		w := NewWidget(testLogger())

		// Nobody drains; fill the buffer past capacity.
		for i := 0; i < 20; i++ {
			w.Press(CommandPlayPause)
		}

		delivered := 0
		for {
			select {
			case <-w.Commands():
				delivered++
				continue
			default:
			}
			break
		}
		if delivered == 0 || delivered >= 20 {
			t.Errorf("Expected buffered subset of presses, got %d", delivered)
		}
	})
}

func TestNotification(t *testing.T) {
	n := NewNotification(testLogger())

	n.UpdateNowPlaying(NowPlaying{Title: "Song", Artist: "Artist"})
	np, visible := n.Current()
	if !visible || np.Artist != "Artist" {
		t.Errorf("Expected visible notification, got %+v visible=%v", np, visible)
	}

	n.SetIdle()
	if _, visible := n.Current(); visible {
		t.Error("Expected notification dismissed")
	}
}

func TestCommandString(t *testing.T) {
	cases := map[Command]string{
		CommandPlayPause:    "play_pause",
		CommandSkipNext:     "skip_next",
		CommandSkipPrevious: "skip_previous",
		Command(99):         "unknown",
	}
	for cmd, want := range cases {
		if got := cmd.String(); got != want {
			t.Errorf("Command(%d).String() = %q, want %q", cmd, got, want)
		}
	}
}
