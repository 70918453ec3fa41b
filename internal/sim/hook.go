package sim

// PreTickHook may rewrite the ship and bullet collections once per tick
// before physics runs. It receives copies and returns the replacements.
// Hooks must not introduce ids the engine has not allocated; the engine does
// not validate what comes back.
type PreTickHook interface {
	BeforeTick(tick uint64, ships map[ShipID]Ship, bullets map[BulletID]Bullet) (map[ShipID]Ship, map[BulletID]Bullet)
}

type HookFunc func(tick uint64, ships map[ShipID]Ship, bullets map[BulletID]Bullet) (map[ShipID]Ship, map[BulletID]Bullet)

func (f HookFunc) BeforeTick(tick uint64, ships map[ShipID]Ship, bullets map[BulletID]Bullet) (map[ShipID]Ship, map[BulletID]Bullet) {
	if f == nil {
		return ships, bullets
	}
	return f(tick, ships, bullets)
}

// ChainHooks runs hooks in order, feeding each the previous result.
func ChainHooks(hooks ...PreTickHook) PreTickHook {
	var live []PreTickHook
	for _, h := range hooks {
		if h != nil {
			live = append(live, h)
		}
	}
	if len(live) == 0 {
		return nil
	}
	return HookFunc(func(tick uint64, ships map[ShipID]Ship, bullets map[BulletID]Bullet) (map[ShipID]Ship, map[BulletID]Bullet) {
		for _, h := range live {
			ships, bullets = h.BeforeTick(tick, ships, bullets)
		}
		return ships, bullets
	})
}
