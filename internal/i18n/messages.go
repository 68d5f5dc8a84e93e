package i18n

var messages = map[string]map[string]string{
	LocaleEN: {
		"error.bad_request":                "Invalid request parameters",
		"error.unauthorized":               "Authentication required",
		"error.forbidden":                  "Permission denied",
		"error.not_found":                  "Resource not found",
		"error.internal_error":             "Internal server error",
		"error.too_many_requests":          "Too many requests, retry in %d seconds",
		"error.user_id_invalid":            "Invalid account id",
		"error.context_type_invalid":       "Invalid session context",
		"error.login_invalid":              "Invalid username or password",
		"error.token_invalid":              "Session expired, please sign in again",
		"error.customer_disabled":          "Customer account is disabled",
		"error.password_invalid":           "Current password is incorrect",
		"error.password_min_length":        "Password must be at least %d characters",
		"error.password_max_length":        "Password must not exceed %d bytes",
		"error.password_require_upper":     "Password must contain an uppercase letter",
		"error.password_require_lower":     "Password must contain a lowercase letter",
		"error.password_require_number":    "Password must contain a digit",
		"error.password_require_special":   "Password must contain a special character",
		"error.factory_forbidden":          "Factory endpoint is not reachable from this network",
		"error.chip_uid_invalid":           "Chip UID must be 8, 14 or 20 hexadecimal characters",
		"error.chip_input_invalid":         "Invalid chip request",
		"error.chip_payload_missing":       "Chip payload is incomplete",
		"error.chip_payload_malformed":     "Chip payload is malformed",
		"error.chip_archive_reason_short":  "Archive reason must contain at least %d words",
		"error.chip_sav_reason_required":   "A return reason is required",
		"error.packaging_code_mismatch":    "Packaging code does not match the shipment",
		"error.chip_replacement_self":      "A chip cannot replace itself",
		"error.import_empty":               "No UID to import",
		"error.import_too_large":           "Too many UIDs in one import",
		"error.import_count_mismatch":      "UID count does not match the supplier order",
		"error.spreadsheet_unsupported":    "Unsupported file, upload an XLSX or CSV file",
		"error.spreadsheet_uid_missing":    "No UID column found in the file",
		"error.spreadsheet_too_large":      "Uploaded file is too large",
		"error.spreadsheet_parse_failed":   "Unable to read the uploaded file",
		"error.chip_not_found":             "Chip not found",
		"error.replacement_chip_not_found": "Replacement chip not found",
		"error.order_not_found":            "Order not found",
		"error.supplier_order_not_found":   "Supplier order not found",
		"error.customer_not_found":         "Customer not found",
		"error.control_point_not_found":    "Control point not found",
		"error.control_point_not_owned":    "Control point belongs to another customer",
		"error.security_event_not_found":   "Security event not found",
		"error.chip_invalid_transition":    "Operation not allowed in the chip's current status",
		"error.chip_already_encoded":       "Chip is already encoded",
		"error.chip_duplicate":             "Chip UID is already registered",
		"error.chip_concurrent_update":     "Chip was modified concurrently, reload and retry",
		"error.chip_not_owned":             "Chip belongs to another customer",
		"error.order_status_invalid":       "Order status does not allow this operation",
		"error.order_not_shippable":        "Order cannot receive chips",
		"error.chip_verification_failed":   "Chip verification failed",
		"error.subscription_inactive":      "Subscription is not active",
		"error.chip_quota_exceeded":        "Chip quota reached for this customer",
		"error.no_eligible_order":          "No delivered order has a free activation slot",
		"error.chip_history_corrupt":       "Chip history is inconsistent",
		"error.subscription_invalid":       "Unknown subscription status",
		"error.role_invalid":               "Invalid role",
		"error.admin_username_invalid":     "Username must be 3 to 64 characters",
		"error.admin_username_exists":      "Username already taken",
		"error.admin_disabled":             "Operator account is disabled",
		"error.admin_disable_self":         "You cannot disable your own account",
		"error.admin_station_invalid":      "Station must be bureau, atelier, entrepot or sav",
	},
	LocaleFR: {
		"error.bad_request":                "Paramètres de requête invalides",
		"error.unauthorized":               "Authentification requise",
		"error.forbidden":                  "Accès refusé",
		"error.not_found":                  "Ressource introuvable",
		"error.internal_error":             "Erreur interne du serveur",
		"error.too_many_requests":          "Trop de requêtes, réessayez dans %d secondes",
		"error.user_id_invalid":            "Identifiant de compte invalide",
		"error.context_type_invalid":       "Contexte de session invalide",
		"error.login_invalid":              "Identifiant ou mot de passe incorrect",
		"error.token_invalid":              "Session expirée, veuillez vous reconnecter",
		"error.customer_disabled":          "Le compte client est désactivé",
		"error.password_invalid":           "Le mot de passe actuel est incorrect",
		"error.password_min_length":        "Le mot de passe doit contenir au moins %d caractères",
		"error.password_max_length":        "Le mot de passe ne doit pas dépasser %d octets",
		"error.password_require_upper":     "Le mot de passe doit contenir une majuscule",
		"error.password_require_lower":     "Le mot de passe doit contenir une minuscule",
		"error.password_require_number":    "Le mot de passe doit contenir un chiffre",
		"error.password_require_special":   "Le mot de passe doit contenir un caractère spécial",
		"error.factory_forbidden":          "Point d'accès usine inaccessible depuis ce réseau",
		"error.chip_uid_invalid":           "L'UID de la puce doit comporter 8, 14 ou 20 caractères hexadécimaux",
		"error.chip_input_invalid":         "Requête puce invalide",
		"error.chip_payload_missing":       "Données de la puce incomplètes",
		"error.chip_payload_malformed":     "Données de la puce mal formées",
		"error.chip_archive_reason_short":  "Le motif d'archivage doit contenir au moins %d mots",
		"error.chip_sav_reason_required":   "Un motif de retour est obligatoire",
		"error.packaging_code_mismatch":    "Le code emballage ne correspond pas à l'expédition",
		"error.chip_replacement_self":      "Une puce ne peut pas se remplacer elle-même",
		"error.import_empty":               "Aucun UID à importer",
		"error.import_too_large":           "Trop d'UID dans un seul import",
		"error.import_count_mismatch":      "Le nombre d'UID ne correspond pas à la commande fournisseur",
		"error.spreadsheet_unsupported":    "Fichier non pris en charge, envoyez un XLSX ou un CSV",
		"error.spreadsheet_uid_missing":    "Aucune colonne UID trouvée dans le fichier",
		"error.spreadsheet_too_large":      "Le fichier envoyé est trop volumineux",
		"error.spreadsheet_parse_failed":   "Impossible de lire le fichier envoyé",
		"error.chip_not_found":             "Puce introuvable",
		"error.replacement_chip_not_found": "Puce de remplacement introuvable",
		"error.order_not_found":            "Commande introuvable",
		"error.supplier_order_not_found":   "Commande fournisseur introuvable",
		"error.customer_not_found":         "Client introuvable",
		"error.control_point_not_found":    "Point de contrôle introuvable",
		"error.control_point_not_owned":    "Le point de contrôle appartient à un autre client",
		"error.security_event_not_found":   "Événement de sécurité introuvable",
		"error.chip_invalid_transition":    "Opération impossible dans le statut actuel de la puce",
		"error.chip_already_encoded":       "La puce est déjà encodée",
		"error.chip_duplicate":             "Cet UID est déjà enregistré",
		"error.chip_concurrent_update":     "La puce a été modifiée en parallèle, rechargez et réessayez",
		"error.chip_not_owned":             "La puce appartient à un autre client",
		"error.order_status_invalid":       "Le statut de la commande ne permet pas cette opération",
		"error.order_not_shippable":        "La commande ne peut pas recevoir de puces",
		"error.chip_verification_failed":   "Échec de la vérification de la puce",
		"error.subscription_inactive":      "L'abonnement n'est pas actif",
		"error.chip_quota_exceeded":        "Quota de puces atteint pour ce client",
		"error.no_eligible_order":          "Aucune commande livrée ne dispose d'emplacement libre",
		"error.chip_history_corrupt":       "L'historique de la puce est incohérent",
		"error.subscription_invalid":       "Statut d'abonnement inconnu",
		"error.role_invalid":               "Rôle invalide",
		"error.admin_username_invalid":     "Le nom d'utilisateur doit contenir 3 à 64 caractères",
		"error.admin_username_exists":      "Nom d'utilisateur déjà utilisé",
		"error.admin_disabled":             "Le compte opérateur est désactivé",
		"error.admin_disable_self":         "Vous ne pouvez pas désactiver votre propre compte",
		"error.admin_station_invalid":      "Le poste doit être bureau, atelier, entrepot ou sav",
	},
	LocaleZH: {
		"error.bad_request":                "请求参数错误",
		"error.unauthorized":               "未登录或登录已失效",
		"error.forbidden":                  "无权限访问",
		"error.not_found":                  "资源不存在",
		"error.internal_error":             "服务器内部错误",
		"error.too_many_requests":          "请求过于频繁，请 %d 秒后重试",
		"error.user_id_invalid":            "账号 ID 无效",
		"error.context_type_invalid":       "会话上下文异常",
		"error.login_invalid":              "用户名或密码错误",
		"error.token_invalid":              "登录已失效，请重新登录",
		"error.customer_disabled":          "客户账号已停用",
		"error.password_invalid":           "原密码错误",
		"error.password_min_length":        "密码长度不能少于 %d 位",
		"error.password_max_length":        "密码不能超过 %d 字节",
		"error.password_require_upper":     "密码需包含大写字母",
		"error.password_require_lower":     "密码需包含小写字母",
		"error.password_require_number":    "密码需包含数字",
		"error.password_require_special":   "密码需包含特殊字符",
		"error.factory_forbidden":          "当前网络无法访问产线接口",
		"error.chip_uid_invalid":           "芯片 UID 须为 8、14 或 20 位十六进制字符",
		"error.chip_input_invalid":         "芯片请求参数错误",
		"error.chip_payload_missing":       "芯片数据不完整",
		"error.chip_payload_malformed":     "芯片数据格式错误",
		"error.chip_archive_reason_short":  "归档原因至少需要 %d 个词",
		"error.chip_sav_reason_required":   "请填写售后原因",
		"error.packaging_code_mismatch":    "包装码与发货记录不一致",
		"error.chip_replacement_self":      "芯片不能替换自身",
		"error.import_empty":               "没有可导入的 UID",
		"error.import_too_large":           "单次导入的 UID 过多",
		"error.import_count_mismatch":      "UID 数量与采购单不一致",
		"error.spreadsheet_unsupported":    "不支持的文件格式，请上传 XLSX 或 CSV",
		"error.spreadsheet_uid_missing":    "文件中未找到 UID 列",
		"error.spreadsheet_too_large":      "上传文件过大",
		"error.spreadsheet_parse_failed":   "无法解析上传文件",
		"error.chip_not_found":             "芯片不存在",
		"error.replacement_chip_not_found": "替换芯片不存在",
		"error.order_not_found":            "订单不存在",
		"error.supplier_order_not_found":   "采购单不存在",
		"error.customer_not_found":         "客户不存在",
		"error.control_point_not_found":    "巡检点不存在",
		"error.control_point_not_owned":    "巡检点属于其他客户",
		"error.security_event_not_found":   "安全事件不存在",
		"error.chip_invalid_transition":    "芯片当前状态不允许该操作",
		"error.chip_already_encoded":       "芯片已编码",
		"error.chip_duplicate":             "芯片 UID 已登记",
		"error.chip_concurrent_update":     "芯片已被并发修改，请刷新后重试",
		"error.chip_not_owned":             "芯片属于其他客户",
		"error.order_status_invalid":       "订单状态不允许该操作",
		"error.order_not_shippable":        "该订单无法发货芯片",
		"error.chip_verification_failed":   "芯片校验失败",
		"error.subscription_inactive":      "订阅未生效",
		"error.chip_quota_exceeded":        "客户芯片配额已满",
		"error.no_eligible_order":          "没有可激活的已签收订单",
		"error.chip_history_corrupt":       "芯片流转记录不一致",
		"error.subscription_invalid":       "未知的订阅状态",
		"error.role_invalid":               "角色无效",
		"error.admin_username_invalid":     "用户名长度需为 3 到 64 个字符",
		"error.admin_username_exists":      "用户名已存在",
		"error.admin_disabled":             "操作员账号已停用",
		"error.admin_disable_self":         "不能停用自己的账号",
		"error.admin_station_invalid":      "岗位只能是 bureau、atelier、entrepot 或 sav",
	},
}
