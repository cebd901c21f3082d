package ports

type Metrics interface {
	MonitorsActive(n int)
	MonitorRestarted(buyer string)
	EventsProcessed(n int)
	MessageSent(ok bool)
	PurchaseCompleted(ok bool)
	APIRetry(op string)
}

type NopMetrics struct{}

func (NopMetrics) MonitorsActive(int)      {}
func (NopMetrics) MonitorRestarted(string) {}
func (NopMetrics) EventsProcessed(int)     {}
func (NopMetrics) MessageSent(bool)        {}
func (NopMetrics) PurchaseCompleted(bool)  {}
func (NopMetrics) APIRetry(string)         {}
