package circuit

import "fmt"

// manage runs the manage phase to completion: while activeWires is
// non-empty, it pops the front wire and sweeps waitingGates against that
// wire's fanout, promoting gates whose inputs are now all captured to
// executingGates and pushing everything else back onto waitingGates in
// its original relative order. A wire whose fanout does not fully drain
// against one pass of waitingGates is requeued at the front of
// activeWires and swept again on the very next iteration.
func (c *Circuit) manage() error {
	for c.activeWires.Len() > 0 {
		front := c.activeWires.Front()
		c.activeWires.Remove(front)
		w := front.Value.(*Wire)

		if c.waitingGates.Len() == 0 {
			return &SchedulerInvariantViolation{
				Msg: fmt.Sprintf("waitingGates empty while wire %s is still active (cyclic or unreachable gate)", w.Name),
			}
		}

		var examined []*Gate
		wireDone := false
		for !wireDone && c.waitingGates.Len() > 0 {
			gf := c.waitingGates.Front()
			c.waitingGates.Remove(gf)
			g := gf.Value.(*Gate)

			idx := indexOf(w.Fanout, g.Name)
			if idx < 0 {
				examined = append(examined, g)
				continue
			}

			allReady := true
			for i, inName := range g.InWireNames {
				if inName == w.Name {
					g.Ready[i] = true
					g.EncIn[i] = w.Cipher
					g.PlainIn[i] = w.Value
				}
				allReady = allReady && g.Ready[i]
			}
			if allReady {
				c.executingGates = append(c.executingGates, g)
			} else {
				examined = append(examined, g)
			}

			w.Fanout = removeAt(w.Fanout, idx)
			if len(w.Fanout) == 0 {
				wireDone = true
			}
		}

		// Preserve waitingGates' relative order: pushing front in reverse
		// iteration order restores it at the head of the queue.
		for i := len(examined) - 1; i >= 0; i-- {
			c.waitingGates.PushFront(examined[i])
		}

		if !wireDone {
			c.activeWires.PushFront(w)
		}
	}
	return nil
}
