package models

// Language constants
const (
	LangEnglish           = "en"
	LangSimplifiedChinese = "zh_CN"
)

// Translation is a map of message keys to translated text
type Translation map[string]string

// Translations stores all language translations
var Translations = map[string]Translation{
	LangEnglish: {
		"help_title":                "Moderation commands",
		"help_cmd_ban":              "/ban <user id | reply> [reason] - ban a user (choose standard, spam or blacklist)",
		"help_cmd_kick":             "/kick <user id | reply> [reason] - kick a member",
		"help_cmd_timeout":          "/timeout <user id | reply> <%s> [reason] - silence a member for a while",
		"help_cmd_unban":            "/unban <user id | reply> [reason] - lift a ban",
		"help_note":                 "Only staff can use these commands, and only on members within their jurisdiction.",
		"cmd_desc_help":             "Show moderation help",
		"cmd_desc_ban":              "Ban a user",
		"cmd_desc_kick":             "Kick a member",
		"cmd_desc_timeout":          "Time out a member",
		"cmd_desc_unban":            "Lift a ban",
		"default_reason":            "none given",
		"dm_ban":                    "You have been banned from %[2]s for %[1]s.\nGiven reason:\n> %[3]s",
		"dm_blacklist":              "You have been permanently blacklisted from %s.\nGiven reason:\n> %s",
		"dm_kick":                   "You have been kicked from %s.\nGiven reason:\n> %s",
		"dm_timeout":                "You have been timed out in %s for %s.\nGiven reason:\n> %s",
		"reply_not_staff":           "You are not authorized to use this command!",
		"reply_out_of_jurisdiction": "You are not allowed to run /%s on this user due to their roles.",
		"reply_target_unresolvable": "Cannot determine the roles of this user, refusing /%s.",
		"reply_forbidden":           "Lacking permissions to %s %s!",
		"reply_not_found":           "User %s is not a member of %s!",
		"reply_enforcement_failed":  "Failed to %s %s, check logs.",
		"reply_store_failed":        "%s was applied, but the ban expiry could not be recorded. Check logs.",
		"reply_invalid_timeout":     "Unknown timeout length %q, choose one of: %s",
		"reply_dm_failed":           "Failed to DM %s, check logs.",
		"reply_banned":              "Banned %s for %s with reason: %s",
		"reply_spam_banned":         "Banned spam account %s and removed their recent messages.",
		"reply_blacklisted":         "Blacklisted %s with reason: %s",
		"reply_kicked":              "Kicked %s with reason: %s",
		"reply_timed_out":           "Timed out %s for %s with reason: %s",
		"reply_unbanned":            "Unbanned %s with reason: %s",
		"reply_usage":               "Usage: %s",
		"reply_wrong_chat":          "Moderation commands only work in %s.",
		"reply_choose_variant":      "Choose the type of ban for %s:",
		"reply_pending_expired":     "This request has expired, run /ban again.",
		"reply_not_your_request":    "Only the moderator who ran /ban can choose.",
		"button_variant_standard":   "%s ban",
		"button_variant_spam":       "Spam account (permanent, deletes messages)",
		"button_variant_blacklist":  "Blacklist (permanent)",
		"button_unban":              "Unban",
	},
	LangSimplifiedChinese: {
		"help_title":                "管理命令",
		"help_cmd_ban":              "/ban <用户ID | 回复> [原因] - 封禁用户（可选普通、垃圾账号或永久黑名单）",
		"help_cmd_kick":             "/kick <用户ID | 回复> [原因] - 移出成员",
		"help_cmd_timeout":          "/timeout <用户ID | 回复> <%s> [原因] - 暂时禁言成员",
		"help_cmd_unban":            "/unban <用户ID | 回复> [原因] - 解除封禁",
		"help_note":                 "只有管理人员可以使用这些命令，且只能作用于其管辖范围内的成员。",
		"cmd_desc_help":             "显示管理帮助",
		"cmd_desc_ban":              "封禁用户",
		"cmd_desc_kick":             "移出成员",
		"cmd_desc_timeout":          "禁言成员",
		"cmd_desc_unban":            "解除封禁",
		"default_reason":            "未提供",
		"dm_ban":                    "你已被 %[2]s 封禁 %[1]s。\n原因：\n> %[3]s",
		"dm_blacklist":              "你已被 %s 永久列入黑名单。\n原因：\n> %s",
		"dm_kick":                   "你已被移出 %s。\n原因：\n> %s",
		"dm_timeout":                "你在 %s 被禁言 %s。\n原因：\n> %s",
		"reply_not_staff":           "你无权使用此命令！",
		"reply_out_of_jurisdiction": "由于该用户的角色，你不能对其执行 /%s。",
		"reply_target_unresolvable": "无法确定该用户的角色，拒绝执行 /%s。",
		"reply_forbidden":           "机器人缺少权限，无法%s %s！",
		"reply_not_found":           "用户 %s 不是 %s 的成员！",
		"reply_enforcement_failed":  "%s %s 失败，请查看日志。",
		"reply_store_failed":        "%s 已执行，但封禁期限未能记录，请查看日志。",
		"reply_invalid_timeout":     "未知的禁言时长 %q，可选：%s",
		"reply_dm_failed":           "无法私信 %s，请查看日志。",
		"reply_banned":              "已封禁 %s，期限 %s，原因：%s",
		"reply_spam_banned":         "已封禁垃圾账号 %s 并删除其近期消息。",
		"reply_blacklisted":         "已将 %s 永久列入黑名单，原因：%s",
		"reply_kicked":              "已移出 %s，原因：%s",
		"reply_timed_out":           "已禁言 %s %s，原因：%s",
		"reply_unbanned":            "已解封 %s，原因：%s",
		"reply_usage":               "用法：%s",
		"reply_wrong_chat":          "管理命令只能在 %s 中使用。",
		"reply_choose_variant":      "请选择对 %s 的封禁类型：",
		"reply_pending_expired":     "该请求已过期，请重新执行 /ban。",
		"reply_not_your_request":    "只有执行 /ban 的管理员可以选择。",
		"button_variant_standard":   "封禁 %s",
		"button_variant_spam":       "垃圾账号（永久，删除消息）",
		"button_variant_blacklist":  "永久黑名单",
		"button_unban":              "解除封禁",
	},
}

// GetTranslation returns the correct translation for a given language code and key
func GetTranslation(lang, key string) string {
	if _, ok := Translations[lang]; !ok {
		lang = LangEnglish
	}

	if translation, ok := Translations[lang][key]; ok {
		return translation
	}

	// Fall back to English if key not found in specified language
	if translation, ok := Translations[LangEnglish][key]; ok {
		return translation
	}

	// Return the key itself if translation not found
	return key
}

// GetLanguageName returns the localized name of a language code
func GetLanguageName(langCode string) string {
	switch langCode {
	case LangSimplifiedChinese:
		return "简体中文"
	case LangEnglish:
		return "English"
	default:
		return langCode
	}
}
