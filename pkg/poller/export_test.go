package poller

// Tick runs one scheduled refresh.
func (p *Poller) Tick() {
	p.tick()
}
