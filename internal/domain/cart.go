package domain

import "time"

// OwnerKind различает корзину анонимной сессии и корзину аккаунта.
type OwnerKind string

const (
	// OwnerKindGuest — корзина принадлежит анонимной браузерной сессии.
	OwnerKindGuest OwnerKind = "guest"
	// OwnerKindAccount — корзина привязана к аутентифицированному аккаунту.
	OwnerKindAccount OwnerKind = "account"
)

// CartOwner однозначно идентифицирует владельца корзины.
// Для гостя ID — идентификатор сессии, для аккаунта — стабильный account id
// от identity-провайдера.
type CartOwner struct {
	Kind OwnerKind
	ID   string
}

// GuestOwner строит владельца-гостя по идентификатору сессии.
func GuestOwner(sessionID string) CartOwner {
	return CartOwner{Kind: OwnerKindGuest, ID: sessionID}
}

// AccountOwner строит владельца-аккаунт по account id.
func AccountOwner(accountID string) CartOwner {
	return CartOwner{Kind: OwnerKindAccount, ID: accountID}
}

// Key возвращает ключ владельца для key-value хранилищ корзин.
func (o CartOwner) Key() string {
	return string(o.Kind) + ":" + o.ID
}

// CartLine представляет желаемое количество одного товара в корзине.
type CartLine struct {
	ProductID      string
	Title          string
	UnitPriceMinor int64 // цена за единицу в минимальных денежных единицах
	Quantity       int32
}

// Cart агрегирует позиции корзины одного владельца.
// Порядок позиций не несёт смысла; ProductID уникален в пределах корзины.
type Cart struct {
	Owner     CartOwner
	Lines     []CartLine
	UpdatedAt time.Time
	// Unsynced выставляется, когда последняя запись в backing store не удалась
	// и состояние в памяти опережает персистентное. Флаг не сохраняется.
	Unsynced bool
}

// NewCart возвращает пустую корзину для владельца.
func NewCart(owner CartOwner) Cart {
	return Cart{Owner: owner, Lines: []CartLine{}}
}

// Line возвращает позицию по productID и признак её наличия.
func (c *Cart) Line(productID string) (CartLine, bool) {
	for _, line := range c.Lines {
		if line.ProductID == productID {
			return line, true
		}
	}
	return CartLine{}, false
}

// Quantity возвращает текущее количество товара в корзине (0, если позиции нет).
func (c *Cart) Quantity(productID string) int32 {
	line, ok := c.Line(productID)
	if !ok {
		return 0
	}
	return line.Quantity
}

// IsEmpty сообщает, пуста ли корзина.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// TotalMinor считает суммарную стоимость корзины в минимальных единицах.
func (c *Cart) TotalMinor() int64 {
	var total int64
	for _, line := range c.Lines {
		total += int64(line.Quantity) * line.UnitPriceMinor
	}
	return total
}

// Upsert увеличивает количество существующей позиции на delta или добавляет новую.
func (c *Cart) Upsert(line CartLine, delta int32) {
	for i := range c.Lines {
		if c.Lines[i].ProductID == line.ProductID {
			c.Lines[i].Quantity += delta
			return
		}
	}
	line.Quantity = delta
	c.Lines = append(c.Lines, line)
}

// Decrease уменьшает количество позиции; при остатке <= 0 позиция удаляется.
func (c *Cart) Decrease(productID string, delta int32) {
	for i := range c.Lines {
		if c.Lines[i].ProductID != productID {
			continue
		}
		c.Lines[i].Quantity -= delta
		if c.Lines[i].Quantity <= 0 {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
		}
		return
	}
}

// Remove безусловно удаляет позицию.
func (c *Cart) Remove(productID string) {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return
		}
	}
}

// ValidateInvariants проверяет базовые инварианты корзины и возвращает список замечаний.
func (c *Cart) ValidateInvariants() []error {
	var errs []error

	if c.Owner.ID == "" {
		errs = append(errs, ErrCartOwnerRequired)
	}

	seen := make(map[string]bool, len(c.Lines))
	for _, line := range c.Lines {
		if line.ProductID == "" {
			errs = append(errs, ErrLineProductRequired)
		}
		if line.Quantity <= 0 {
			errs = append(errs, ErrLineQtyInvalid)
		}
		if line.UnitPriceMinor < 0 {
			errs = append(errs, ErrLinePriceInvalid)
		}
		if seen[line.ProductID] {
			errs = append(errs, ErrLineDuplicate)
		}
		seen[line.ProductID] = true
	}

	return errs
}

// MergeCarts объединяет гостевую корзину с корзиной аккаунта.
// Для общих productID количества суммируются без ограничения по стоку —
// ограничение применяется Stock Guard и повторной валидацией на settlement.
// Результат принадлежит владельцу accountCart. Операция не идемпотентна:
// вызывающая сторона обязана очистить гостевую корзину после успешного
// сохранения результата, иначе повторный логин задвоит количества.
func MergeCarts(guestCart, accountCart Cart) Cart {
	merged := Cart{
		Owner: accountCart.Owner,
		Lines: make([]CartLine, len(accountCart.Lines)),
	}
	copy(merged.Lines, accountCart.Lines)

	for _, guestLine := range guestCart.Lines {
		merged.Upsert(guestLine, guestLine.Quantity)
	}

	return merged
}
