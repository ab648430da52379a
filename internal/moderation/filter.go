// Package moderation вырезает контактные данные из текста сообщений.
//
// Фильтрация основана на регулярных выражениях и принципиально работает
// по принципу best-effort: замаскированные контакты ("восемь девятьсот...",
// "собака" вместо @, цифры через пробел) она не ловит. Это осознанное
// ограничение, а не дефект.
package moderation

import "regexp"

// Marker подставляется на место каждого найденного совпадения.
const Marker = "[CONTENT FILTERED]"

// Категории проверяются по порядку, каждая против уже отредактированной
// строки. Совпадение одной категории не мешает сработать следующей.
var categories = []*regexp.Regexp{
	// телефоны: международные и "голые" 10-значные номера
	regexp.MustCompile(`\+?\d[\d\s().-]{7,}\d`),
	// email адреса
	regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),
	// @handle в соцсетях
	regexp.MustCompile(`@[A-Za-z0-9_][A-Za-z0-9_.]+`),
	// ссылки
	regexp.MustCompile(`https?://[^\s]+`),
	// фразы обмена контактами
	regexp.MustCompile(`(?i)\b(address|meet at|come to|visit me)\b`),
	// названия сторонних платформ
	regexp.MustCompile(`(?i)\b(whatsapp|telegram|instagram|facebook|twitter|linkedin|snapchat|tiktok)\b`),
}

// Filter возвращает текст с вырезанными контактными данными и флаг,
// сработала ли хотя бы одна категория. Функция чистая, детерминированная
// и идемпотентная: повторный прогон по уже отфильтрованному тексту
// ничего не меняет (маркер не совпадает ни с одной категорией).
//
// Обе точки входа — REST и websocket — обязаны вызывать её до записи
// сообщения в базу.
func Filter(text string) (string, bool) {
	filtered := false
	for _, re := range categories {
		if re.MatchString(text) {
			text = re.ReplaceAllString(text, Marker)
			filtered = true
		}
	}
	return text, filtered
}
