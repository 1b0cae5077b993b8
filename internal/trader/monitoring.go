package trader

import "context"

// beacon announces that the backend is alive. Downstream UIs treat a silent
// beacon channel as "trader down".
func (a *App) beacon(context.Context) (struct{}, error) {
	a.deps.Pub.Publish("beacon", nil)
	return struct{}{}, nil
}
